package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"souviens_toi/internal/domain"
)

// EventStoryStore manages the event_stories join table.
type EventStoryStore struct {
	db *sqlx.DB
}

func NewEventStoryStore(db *sqlx.DB) *EventStoryStore {
	return &EventStoryStore{db: db}
}

func (s *EventStoryStore) StoryIDsByEvent(ctx context.Context, eventID string) ([]string, error) {
	var ids []string
	query := `SELECT story_id FROM event_stories WHERE event_id = $1 ORDER BY created_at, story_id`

	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &ids, query, eventID)
	return ids, mapError(err)
}

// Insert fails with domain.ErrAlreadyLinked when the pair exists.
func (s *EventStoryStore) Insert(ctx context.Context, link domain.EventStoryLink) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"INSERT INTO event_stories (event_id, story_id) VALUES ($1, $2)",
		link.EventID, link.StoryID,
	)
	return mapError(err)
}

func (s *EventStoryStore) Delete(ctx context.Context, link domain.EventStoryLink) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM event_stories WHERE event_id = $1 AND story_id = $2",
		link.EventID, link.StoryID,
	)
	return mapError(err)
}
