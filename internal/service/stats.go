package service

import (
	"context"
	"fmt"
	"log/slog"

	"souviens_toi/internal/domain"
	"souviens_toi/internal/notify"
)

type StatsService struct {
	events   EventStore
	stories  StoryStore
	media    MediaStore
	tx       TransactionManager
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewStatsService(
	events EventStore,
	stories StoryStore,
	media MediaStore,
	txManager TransactionManager,
	notifier notify.Notifier,
	logger *slog.Logger,
) *StatsService {
	return &StatsService{
		events:   events,
		stories:  stories,
		media:    media,
		tx:       txManager,
		notifier: notifier,
		logger:   logger.With("component", "stats"),
	}
}

// Get counts the current user's events, stories and media.
func (s *StatsService) Get(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if stats.Events, err = s.events.Count(txCtx); err != nil {
			return fmt.Errorf("count events: %w", err)
		}
		if stats.Stories, err = s.stories.Count(txCtx); err != nil {
			return fmt.Errorf("count stories: %w", err)
		}
		if stats.Media, stats.MediaBytes, err = s.media.Totals(txCtx); err != nil {
			return fmt.Errorf("count media: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("load stats failed", "error", err)
		s.notifier.Notify(ctx, notify.Error, "Failed to load statistics")
		return domain.Stats{}, err
	}
	return stats, nil
}
