package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"io"
	"time"

	"souviens_toi/internal/domain"
	"souviens_toi/internal/download"
)

type EventStore interface {
	Create(ctx context.Context, event *domain.Event) error
	Get(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context) ([]domain.Event, error)
	Count(ctx context.Context) (int, error)
}

type StoryStore interface {
	Create(ctx context.Context, story *domain.Story) error
	GetByIDs(ctx context.Context, ids []string) ([]domain.Story, error)
	ListNewestFirst(ctx context.Context) ([]domain.Story, error)
	Count(ctx context.Context) (int, error)
}

type EventStoryStore interface {
	StoryIDsByEvent(ctx context.Context, eventID string) ([]string, error)
	Insert(ctx context.Context, link domain.EventStoryLink) error
	Delete(ctx context.Context, link domain.EventStoryLink) error
}

type MediaStore interface {
	Create(ctx context.Context, media *domain.Media) error
	Get(ctx context.Context, id string) (*domain.Media, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.Media, error)
	ListNewestFirst(ctx context.Context) ([]domain.Media, error)
	AttachToEvent(ctx context.Context, mediaID, eventID string) error
	DetachFromEvent(ctx context.Context, mediaID, eventID string) error
	Delete(ctx context.Context, id string) error
	Totals(ctx context.Context) (int, int64, error)
}

type ObjectStore interface {
	Upload(ctx context.Context, path, contentType string, body io.Reader) error
	Remove(ctx context.Context, paths []string) error
	PublicURL(path string) string
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*download.Object, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
