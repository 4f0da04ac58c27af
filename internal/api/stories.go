package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"souviens_toi/internal/domain"
)

type createStoryRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *Handler) ListStories(c *gin.Context) {
	stories, err := h.stories.List(c.Request.Context(), c.Query("q"))
	RespondList(c, stories, err)
}

func (h *Handler) CreateStory(c *gin.Context) {
	var req createStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	story, err := h.stories.Create(c.Request.Context(), domain.CreateStoryInput{Title: req.Title, Content: req.Content})
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusCreated, story)
}
