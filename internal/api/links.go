package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListLinkedStories(c *gin.Context) {
	stories, err := h.relationships.ListLinkedStories(c.Request.Context(), c.Param("id"))
	RespondList(c, stories, err)
}

func (h *Handler) ListLinkableStories(c *gin.Context) {
	stories, err := h.relationships.ListLinkableStories(c.Request.Context(), c.Param("id"))
	RespondList(c, stories, err)
}

func (h *Handler) LinkStory(c *gin.Context) {
	h.mutateLink(c, http.StatusCreated, h.relationships.LinkStory)
}

func (h *Handler) UnlinkStory(c *gin.Context) {
	h.mutateLink(c, http.StatusOK, h.relationships.UnlinkStory)
}

func (h *Handler) ListLinkedMedia(c *gin.Context) {
	media, err := h.relationships.ListLinkedMedia(c.Request.Context(), c.Param("id"))
	RespondList(c, media, err)
}

func (h *Handler) ListLinkableMedia(c *gin.Context) {
	media, err := h.relationships.ListLinkableMedia(c.Request.Context(), c.Param("id"))
	RespondList(c, media, err)
}

func (h *Handler) LinkMedia(c *gin.Context) {
	h.mutateLink(c, http.StatusCreated, h.relationships.LinkMedia)
}

func (h *Handler) UnlinkMedia(c *gin.Context) {
	h.mutateLink(c, http.StatusOK, h.relationships.UnlinkMedia)
}

type linkResult struct {
	EventID string `json:"event_id"`
	ItemID  string `json:"item_id"`
	Applied bool   `json:"applied"`
}

// mutateLink answers a skipped mutation with 200; the notifications say why.
func (h *Handler) mutateLink(c *gin.Context, status int, fn func(ctx context.Context, eventID, itemID string) (bool, error)) {
	eventID, itemID := c.Param("id"), c.Param("itemId")
	applied, err := fn(c.Request.Context(), eventID, itemID)
	if err != nil {
		RespondError(c, err)
		return
	}
	if !applied {
		status = http.StatusOK
	}
	RespondOK(c, status, linkResult{EventID: eventID, ItemID: itemID, Applied: applied})
}
