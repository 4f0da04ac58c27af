package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"souviens_toi/internal/domain"
)

const eventColumns = `id, title, description, date, precise_date, location, user_id, created_at`

type EventStore struct {
	db *sqlx.DB
}

func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Create(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (title, description, date, precise_date, location, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		event.Title,
		event.Description,
		event.Date,
		event.PreciseDate,
		event.Location,
		event.UserID,
	).Scan(&event.ID, &event.CreatedAt)
	return mapError(err)
}

func (s *EventStore) Get(ctx context.Context, id string) (*domain.Event, error) {
	var event domain.Event
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	if err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &event, query, id); err != nil {
		return nil, mapError(err)
	}
	return &event, nil
}

func (s *EventStore) List(ctx context.Context) ([]domain.Event, error) {
	var events []domain.Event
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY date, created_at`

	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &events, query)
	return events, mapError(err)
}

func (s *EventStore) Count(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &n, `SELECT COUNT(*) FROM events`)
	return n, mapError(err)
}
