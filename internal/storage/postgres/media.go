package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"souviens_toi/internal/domain"
)

const mediaColumns = `id, title, file_url, file_type, file_size, event_id, user_id, created_at`

type MediaStore struct {
	db *sqlx.DB
}

func NewMediaStore(db *sqlx.DB) *MediaStore {
	return &MediaStore{db: db}
}

func (s *MediaStore) Create(ctx context.Context, media *domain.Media) error {
	query := `
		INSERT INTO media (title, file_url, file_type, file_size, event_id, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		media.Title,
		media.URL,
		media.Kind,
		media.FileSize,
		media.EventID,
		media.UserID,
	).Scan(&media.ID, &media.CreatedAt)
	return mapError(err)
}

func (s *MediaStore) Get(ctx context.Context, id string) (*domain.Media, error) {
	var m domain.Media
	query := `SELECT ` + mediaColumns + ` FROM media WHERE id = $1`

	if err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &m, query, id); err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

func (s *MediaStore) ListByEvent(ctx context.Context, eventID string) ([]domain.Media, error) {
	var items []domain.Media
	query := `SELECT ` + mediaColumns + ` FROM media WHERE event_id = $1 ORDER BY created_at DESC, id DESC`

	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &items, query, eventID)
	return items, mapError(err)
}

func (s *MediaStore) ListNewestFirst(ctx context.Context) ([]domain.Media, error) {
	var items []domain.Media
	query := `SELECT ` + mediaColumns + ` FROM media ORDER BY created_at DESC, id DESC`

	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &items, query)
	return items, mapError(err)
}

// AttachToEvent points the media at eventID, replacing any previous event.
func (s *MediaStore) AttachToEvent(ctx context.Context, mediaID, eventID string) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE media SET event_id = $2 WHERE id = $1",
		mediaID, eventID,
	)
	return affectedOne(res, err)
}

// DetachFromEvent only clears event_id when it still equals eventID, so a
// stale unlink never detaches media that has moved to another event.
func (s *MediaStore) DetachFromEvent(ctx context.Context, mediaID, eventID string) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE media SET event_id = NULL WHERE id = $1 AND event_id = $2",
		mediaID, eventID,
	)
	return mapError(err)
}

func (s *MediaStore) Delete(ctx context.Context, id string) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, "DELETE FROM media WHERE id = $1", id)
	return affectedOne(res, err)
}

func (s *MediaStore) Totals(ctx context.Context) (int, int64, error) {
	var totals struct {
		Count int   `db:"count"`
		Bytes int64 `db:"bytes"`
	}
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &totals,
		`SELECT COUNT(*) AS count, COALESCE(SUM(file_size), 0) AS bytes FROM media`)
	return totals.Count, totals.Bytes, mapError(err)
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
