// Package api exposes the archive over HTTP with gin.
package api

import (
	"errors"
	"log/slog"

	"souviens_toi/internal/service"
)

var errBadRequest = errors.New("bad request")

type Handler struct {
	events        *service.EventService
	stories       *service.StoryService
	media         *service.MediaService
	relationships *service.RelationshipManager
	stats         *service.StatsService
	logger        *slog.Logger
}

func NewHandler(
	events *service.EventService,
	stories *service.StoryService,
	media *service.MediaService,
	relationships *service.RelationshipManager,
	stats *service.StatsService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		events:        events,
		stories:       stories,
		media:         media,
		relationships: relationships,
		stats:         stats,
		logger:        logger.With("component", "api"),
	}
}
