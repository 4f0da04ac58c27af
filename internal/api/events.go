package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"souviens_toi/internal/domain"
)

type createEventRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Location    *string `json:"location"`
}

// toInput accepts either a full date ("2006-01-02" or RFC 3339) or a bare
// year ("1954"), which produces an event whose day is unknown.
func (r createEventRequest) toInput() (domain.CreateEventInput, error) {
	in := domain.CreateEventInput{
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
	}

	raw := strings.TrimSpace(r.Date)
	if raw == "" {
		return in, fmt.Errorf("%w: date is required", errBadRequest)
	}

	if len(raw) == 4 {
		t, err := time.Parse("2006", raw)
		if err != nil {
			return in, fmt.Errorf("%w: invalid year %q", errBadRequest, raw)
		}
		in.Date = t
		return in, nil
	}

	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			in.Date = t.UTC()
			in.PreciseDate = true
			return in, nil
		}
	}
	return in, fmt.Errorf("%w: invalid date %q", errBadRequest, raw)
}

func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.events.List(c.Request.Context(), c.Query("q"))
	RespondList(c, withDisplayDates(events), err)
}

func (h *Handler) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	in, err := req.toInput()
	if err != nil {
		RespondError(c, err)
		return
	}

	event, err := h.events.Create(c.Request.Context(), in)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusCreated, eventView{Event: *event, DisplayDate: event.DisplayDate()})
}

func (h *Handler) GetEvent(c *gin.Context) {
	event, err := h.events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, eventView{Event: *event, DisplayDate: event.DisplayDate()})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.stats.Get(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, stats)
}

type eventView struct {
	domain.Event
	DisplayDate string `json:"display_date"`
}

func withDisplayDates(events []domain.Event) []eventView {
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, eventView{Event: e, DisplayDate: e.DisplayDate()})
	}
	return views
}
