package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"souviens_toi/internal/auth"
	"souviens_toi/internal/domain"
	"souviens_toi/internal/notify"
)

type EventService struct {
	events   EventStore
	tx       TransactionManager
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewEventService(events EventStore, txManager TransactionManager, notifier notify.Notifier, logger *slog.Logger) *EventService {
	return &EventService{
		events:   events,
		tx:       txManager,
		notifier: notifier,
		logger:   logger.With("component", "events"),
	}
}

func (s *EventService) Create(ctx context.Context, in domain.CreateEventInput) (*domain.Event, error) {
	userID := auth.CurrentUserID(ctx)
	if userID == "" {
		s.notifier.Notify(ctx, notify.Error, "You must be signed in to add an event")
		return nil, domain.ErrUnauthenticated
	}
	if strings.TrimSpace(in.Title) == "" {
		s.notifier.Notify(ctx, notify.Error, "Please give the event a title")
		return nil, domain.ErrEmptyTitle
	}

	event := &domain.Event{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Date:        in.Date,
		PreciseDate: in.PreciseDate,
		Location:    in.Location,
		UserID:      userID,
	}
	if !event.PreciseDate && !event.Date.IsZero() {
		event.Date = yearOnly(event.Date)
	}

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.events.Create(txCtx, event)
	})
	if err != nil {
		s.logger.Error("create event failed", "error", err)
		s.notifier.Notify(ctx, notify.Error, "Failed to create event")
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.notifier.Notify(ctx, notify.Success, "Event created")
	return event, nil
}

func (s *EventService) Get(ctx context.Context, id string) (*domain.Event, error) {
	if domain.IsPlaceholderID(id) {
		s.notifier.Notify(ctx, notify.Error, "Missing event identifier")
		return nil, domain.ErrInvalidReference
	}

	var event *domain.Event
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		event, err = s.events.Get(txCtx, id)
		return err
	})
	if err != nil {
		s.logger.Error("get event failed", "event_id", id, "error", err)
		s.notifier.Notify(ctx, notify.Error, "Failed to load event")
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// List returns events in chronological order, filtered on title,
// description or location.
func (s *EventService) List(ctx context.Context, term string) ([]domain.Event, error) {
	var events []domain.Event
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		events, err = s.events.List(txCtx)
		return err
	})
	if err != nil {
		s.logger.Error("list events failed", "error", err)
		s.notifier.Notify(ctx, notify.Error, "Failed to load events")
		return []domain.Event{}, fmt.Errorf("list events: %w", err)
	}
	return nonNil(domain.FilterEvents(domain.SortEventsByDate(events), term)), nil
}

func yearOnly(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}
