package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"souviens_toi/internal/auth"
	"souviens_toi/internal/domain"
	"souviens_toi/internal/notify"
)

type StoryService struct {
	stories  StoryStore
	tx       TransactionManager
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewStoryService(stories StoryStore, txManager TransactionManager, notifier notify.Notifier, logger *slog.Logger) *StoryService {
	return &StoryService{
		stories:  stories,
		tx:       txManager,
		notifier: notifier,
		logger:   logger.With("component", "stories"),
	}
}

func (s *StoryService) Create(ctx context.Context, in domain.CreateStoryInput) (*domain.Story, error) {
	userID := auth.CurrentUserID(ctx)
	if userID == "" {
		s.notifier.Notify(ctx, notify.Error, "You must be signed in to write a story")
		return nil, domain.ErrUnauthenticated
	}

	if err := in.Validate(); err != nil {
		switch {
		case errors.Is(err, domain.ErrStoryTooShort):
			s.notifier.Notify(ctx, notify.Error, fmt.Sprintf("A story must contain at least %d characters", domain.MinStoryContentLength))
		default:
			s.notifier.Notify(ctx, notify.Error, "Please fill in every field")
		}
		return nil, err
	}

	story := &domain.Story{
		Title:   strings.TrimSpace(in.Title),
		Content: strings.TrimSpace(in.Content),
		UserID:  userID,
	}
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.stories.Create(txCtx, story)
	})
	if err != nil {
		s.logger.Error("create story failed", "error", err)
		s.notifier.Notify(ctx, notify.Error, "Failed to create story")
		return nil, fmt.Errorf("create story: %w", err)
	}

	s.logger.Info("story created", "story_id", story.ID)
	s.notifier.Notify(ctx, notify.Success, "Story created")
	return story, nil
}

// List returns stories newest first, filtered on title or content.
func (s *StoryService) List(ctx context.Context, term string) ([]domain.Story, error) {
	var stories []domain.Story
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		stories, err = s.stories.ListNewestFirst(txCtx)
		return err
	})
	if err != nil {
		s.logger.Error("list stories failed", "error", err)
		s.notifier.Notify(ctx, notify.Error, "Failed to load stories")
		return []domain.Story{}, fmt.Errorf("list stories: %w", err)
	}
	return nonNil(domain.FilterStories(stories, term)), nil
}
