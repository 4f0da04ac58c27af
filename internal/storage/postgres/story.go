package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"souviens_toi/internal/domain"
)

const storyColumns = `id, title, content, user_id, created_at, updated_at`

type StoryStore struct {
	db *sqlx.DB
}

func NewStoryStore(db *sqlx.DB) *StoryStore {
	return &StoryStore{db: db}
}

func (s *StoryStore) Create(ctx context.Context, story *domain.Story) error {
	query := `
		INSERT INTO stories (title, content, user_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		story.Title,
		story.Content,
		story.UserID,
	).Scan(&story.ID, &story.CreatedAt, &story.UpdatedAt)
	return mapError(err)
}

// GetByIDs returns the stories among ids in the order of ids. Unknown ids
// are skipped.
func (s *StoryStore) GetByIDs(ctx context.Context, ids []string) ([]domain.Story, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + storyColumns + `
		FROM stories
		WHERE id = ANY($1::uuid[])
		ORDER BY array_position($1::uuid[], id)`

	var stories []domain.Story
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &stories, query, pq.Array(ids))
	return stories, mapError(err)
}

func (s *StoryStore) ListNewestFirst(ctx context.Context) ([]domain.Story, error) {
	var stories []domain.Story
	query := `SELECT ` + storyColumns + ` FROM stories ORDER BY created_at DESC, id DESC`

	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &stories, query)
	return stories, mapError(err)
}

func (s *StoryStore) Count(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &n, `SELECT COUNT(*) FROM stories`)
	return n, mapError(err)
}
