// Package memory keeps events, stories and media in process memory. It backs
// local runs and tests; rows are scoped to the authenticated user the same way
// row level security scopes them in the database.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"souviens_toi/internal/auth"
	"souviens_toi/internal/domain"
)

type Store struct {
	mu      sync.RWMutex
	events  []domain.Event
	stories []domain.Story
	links   []domain.EventStoryLink
	media   []domain.Media
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Events() *EventStore             { return &EventStore{s} }
func (s *Store) Stories() *StoryStore           { return &StoryStore{s} }
func (s *Store) EventStories() *EventStoryStore { return &EventStoryStore{s} }
func (s *Store) Media() *MediaStore             { return &MediaStore{s} }

// visible reports whether a row owned by ownerID can be seen from ctx.
// Without an authenticated user every row is visible.
func visible(ctx context.Context, ownerID string) bool {
	uid := auth.CurrentUserID(ctx)
	return uid == "" || uid == ownerID
}

func (s *Store) eventIndex(ctx context.Context, id string) int {
	return slices.IndexFunc(s.events, func(e domain.Event) bool {
		return e.ID == id && visible(ctx, e.UserID)
	})
}

func (s *Store) storyIndex(ctx context.Context, id string) int {
	return slices.IndexFunc(s.stories, func(st domain.Story) bool {
		return st.ID == id && visible(ctx, st.UserID)
	})
}

func (s *Store) mediaIndex(ctx context.Context, id string) int {
	return slices.IndexFunc(s.media, func(m domain.Media) bool {
		return m.ID == id && visible(ctx, m.UserID)
	})
}

type EventStore struct{ s *Store }

func (r *EventStore) Create(_ context.Context, event *domain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	event.ID = uuid.NewString()
	event.CreatedAt = r.s.now()
	r.s.events = append(r.s.events, *event)
	return nil
}

func (r *EventStore) Get(ctx context.Context, id string) (*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	i := r.s.eventIndex(ctx, id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	e := r.s.events[i]
	return &e, nil
}

func (r *EventStore) List(ctx context.Context) ([]domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Event, 0, len(r.s.events))
	for _, e := range r.s.events {
		if visible(ctx, e.UserID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *EventStore) Count(ctx context.Context) (int, error) {
	events, _ := r.List(ctx)
	return len(events), nil
}

type StoryStore struct{ s *Store }

func (r *StoryStore) Create(_ context.Context, story *domain.Story) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	story.ID = uuid.NewString()
	story.CreatedAt = now
	story.UpdatedAt = now
	r.s.stories = append(r.s.stories, *story)
	return nil
}

// GetByIDs returns the visible stories among ids, in the order of ids.
func (r *StoryStore) GetByIDs(ctx context.Context, ids []string) ([]domain.Story, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Story, 0, len(ids))
	for _, id := range ids {
		if i := r.s.storyIndex(ctx, id); i >= 0 {
			out = append(out, r.s.stories[i])
		}
	}
	return out, nil
}

// ListNewestFirst relies on insertion order matching creation order.
func (r *StoryStore) ListNewestFirst(ctx context.Context) ([]domain.Story, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Story, 0, len(r.s.stories))
	for i := len(r.s.stories) - 1; i >= 0; i-- {
		if visible(ctx, r.s.stories[i].UserID) {
			out = append(out, r.s.stories[i])
		}
	}
	return out, nil
}

func (r *StoryStore) Count(ctx context.Context) (int, error) {
	stories, _ := r.ListNewestFirst(ctx)
	return len(stories), nil
}

type EventStoryStore struct{ s *Store }

func (r *EventStoryStore) StoryIDsByEvent(ctx context.Context, eventID string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var ids []string
	for _, l := range r.s.links {
		if l.EventID == eventID && r.s.storyIndex(ctx, l.StoryID) >= 0 {
			ids = append(ids, l.StoryID)
		}
	}
	return ids, nil
}

// Insert rejects a pair that already exists, like the join table's primary key.
func (r *EventStoryStore) Insert(ctx context.Context, link domain.EventStoryLink) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.eventIndex(ctx, link.EventID) < 0 || r.s.storyIndex(ctx, link.StoryID) < 0 {
		return domain.ErrInvalidReference
	}
	if slices.Contains(r.s.links, link) {
		return domain.ErrAlreadyLinked
	}
	r.s.links = append(r.s.links, link)
	return nil
}

// Delete removes nothing when the event is not visible to the caller, the
// same outcome the join table's owner policy gives.
func (r *EventStoryStore) Delete(ctx context.Context, link domain.EventStoryLink) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.eventIndex(ctx, link.EventID) < 0 {
		return nil
	}
	r.s.links = slices.DeleteFunc(r.s.links, func(l domain.EventStoryLink) bool { return l == link })
	return nil
}

type MediaStore struct{ s *Store }

func (r *MediaStore) Create(ctx context.Context, media *domain.Media) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if media.EventID != nil && r.s.eventIndex(ctx, *media.EventID) < 0 {
		return domain.ErrInvalidReference
	}
	media.ID = uuid.NewString()
	media.CreatedAt = r.s.now()
	r.s.media = append(r.s.media, cloneMedia(*media))
	return nil
}

func (r *MediaStore) Get(ctx context.Context, id string) (*domain.Media, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	i := r.s.mediaIndex(ctx, id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	m := cloneMedia(r.s.media[i])
	return &m, nil
}

func (r *MediaStore) ListByEvent(ctx context.Context, eventID string) ([]domain.Media, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Media
	for i := len(r.s.media) - 1; i >= 0; i-- {
		m := r.s.media[i]
		if m.EventID != nil && *m.EventID == eventID && visible(ctx, m.UserID) {
			out = append(out, cloneMedia(m))
		}
	}
	return out, nil
}

func (r *MediaStore) ListNewestFirst(ctx context.Context) ([]domain.Media, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Media, 0, len(r.s.media))
	for i := len(r.s.media) - 1; i >= 0; i-- {
		if visible(ctx, r.s.media[i].UserID) {
			out = append(out, cloneMedia(r.s.media[i]))
		}
	}
	return out, nil
}

// AttachToEvent moves the media to eventID, replacing any previous event.
func (r *MediaStore) AttachToEvent(ctx context.Context, mediaID, eventID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.s.mediaIndex(ctx, mediaID)
	if i < 0 {
		return domain.ErrNotFound
	}
	if r.s.eventIndex(ctx, eventID) < 0 {
		return domain.ErrInvalidReference
	}
	id := eventID
	r.s.media[i].EventID = &id
	return nil
}

// DetachFromEvent clears the event only when the media is linked to eventID.
func (r *MediaStore) DetachFromEvent(ctx context.Context, mediaID, eventID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.s.mediaIndex(ctx, mediaID)
	if i < 0 {
		return nil
	}
	if cur := r.s.media[i].EventID; cur != nil && *cur == eventID {
		r.s.media[i].EventID = nil
	}
	return nil
}

func (r *MediaStore) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.s.mediaIndex(ctx, id)
	if i < 0 {
		return domain.ErrNotFound
	}
	r.s.media = slices.Delete(r.s.media, i, i+1)
	return nil
}

func (r *MediaStore) Totals(ctx context.Context) (int, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var count int
	var size int64
	for _, m := range r.s.media {
		if visible(ctx, m.UserID) {
			count++
			size += m.FileSize
		}
	}
	return count, size, nil
}

func cloneMedia(m domain.Media) domain.Media {
	if m.EventID != nil {
		id := *m.EventID
		m.EventID = &id
	}
	return m
}

// TxManager runs fn directly; the store has no transactions.
type TxManager struct{}

func (TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
