package service

import (
	"context"
	"log/slog"

	"souviens_toi/internal/domain"
	"souviens_toi/internal/notify"
)

// joinTableStrategy links stories through event_stories rows.
type joinTableStrategy struct {
	links   EventStoryStore
	stories StoryStore
}

// Linked takes two round trips: join rows first, then the stories themselves.
func (s *joinTableStrategy) Linked(ctx context.Context, eventID string) ([]domain.Story, error) {
	ids, err := s.links.StoryIDsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.stories.GetByIDs(ctx, ids)
}

func (s *joinTableStrategy) LinkedIDs(ctx context.Context, eventID string) ([]string, error) {
	return s.links.StoryIDsByEvent(ctx, eventID)
}

func (s *joinTableStrategy) All(ctx context.Context) ([]domain.Story, error) {
	return s.stories.ListNewestFirst(ctx)
}

func (s *joinTableStrategy) Add(ctx context.Context, eventID, storyID string) error {
	return s.links.Insert(ctx, domain.EventStoryLink{EventID: eventID, StoryID: storyID})
}

func (s *joinTableStrategy) Remove(ctx context.Context, eventID, storyID string) error {
	return s.links.Delete(ctx, domain.EventStoryLink{EventID: eventID, StoryID: storyID})
}

// foreignKeyStrategy links media by writing event_id on the media row.
type foreignKeyStrategy struct {
	media     MediaStore
	canonical func(string) string
}

func (s *foreignKeyStrategy) Linked(ctx context.Context, eventID string) ([]domain.Media, error) {
	items, err := s.media.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.rewrite(items), nil
}

func (s *foreignKeyStrategy) LinkedIDs(ctx context.Context, eventID string) ([]string, error) {
	items, err := s.media.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(items))
	for i, m := range items {
		ids[i] = m.ID
	}
	return ids, nil
}

func (s *foreignKeyStrategy) All(ctx context.Context) ([]domain.Media, error) {
	items, err := s.media.ListNewestFirst(ctx)
	if err != nil {
		return nil, err
	}
	return s.rewrite(items), nil
}

func (s *foreignKeyStrategy) Add(ctx context.Context, eventID, mediaID string) error {
	return s.media.AttachToEvent(ctx, mediaID, eventID)
}

// Remove clears event_id; the media row itself is kept.
func (s *foreignKeyStrategy) Remove(ctx context.Context, eventID, mediaID string) error {
	return s.media.DetachFromEvent(ctx, mediaID, eventID)
}

func (s *foreignKeyStrategy) rewrite(items []domain.Media) []domain.Media {
	if s.canonical == nil {
		return items
	}
	for i := range items {
		items[i].URL = s.canonical(items[i].URL)
	}
	return items
}

// RelationshipManager keeps event-story and event-media associations.
type RelationshipManager struct {
	Stories *Linker[domain.Story]
	Media   *Linker[domain.Media]
}

// NewRelationshipManager wires both attachment kinds. canonicalURL is applied
// to media URLs before they are returned; nil leaves them untouched.
func NewRelationshipManager(
	stories StoryStore,
	eventStories EventStoryStore,
	media MediaStore,
	txManager TransactionManager,
	notifier notify.Notifier,
	logger *slog.Logger,
	canonicalURL func(string) string,
) *RelationshipManager {
	logger = logger.With("component", "relationships")
	return &RelationshipManager{
		Stories: NewLinker[domain.Story](
			domain.KindStory,
			&joinTableStrategy{links: eventStories, stories: stories},
			txManager, notifier, logger,
		),
		Media: NewLinker[domain.Media](
			domain.KindMedia,
			&foreignKeyStrategy{media: media, canonical: canonicalURL},
			txManager, notifier, logger,
		),
	}
}

func (m *RelationshipManager) ListLinkedStories(ctx context.Context, eventID string) ([]domain.Story, error) {
	return m.Stories.ListLinked(ctx, eventID)
}

func (m *RelationshipManager) ListLinkableStories(ctx context.Context, eventID string) ([]domain.Story, error) {
	return m.Stories.ListLinkable(ctx, eventID)
}

func (m *RelationshipManager) LinkStory(ctx context.Context, eventID, storyID string) (bool, error) {
	return m.Stories.Link(ctx, eventID, storyID)
}

func (m *RelationshipManager) UnlinkStory(ctx context.Context, eventID, storyID string) (bool, error) {
	return m.Stories.Unlink(ctx, eventID, storyID)
}

func (m *RelationshipManager) ListLinkedMedia(ctx context.Context, eventID string) ([]domain.Media, error) {
	return m.Media.ListLinked(ctx, eventID)
}

func (m *RelationshipManager) ListLinkableMedia(ctx context.Context, eventID string) ([]domain.Media, error) {
	return m.Media.ListLinkable(ctx, eventID)
}

func (m *RelationshipManager) LinkMedia(ctx context.Context, eventID, mediaID string) (bool, error) {
	return m.Media.Link(ctx, eventID, mediaID)
}

func (m *RelationshipManager) UnlinkMedia(ctx context.Context, eventID, mediaID string) (bool, error) {
	return m.Media.Unlink(ctx, eventID, mediaID)
}

// Subscribe registers fn for changes of both kinds.
func (m *RelationshipManager) Subscribe(fn ChangeFunc) func() {
	unsubStories := m.Stories.Subscribe(fn)
	unsubMedia := m.Media.Subscribe(fn)
	return func() {
		unsubStories()
		unsubMedia()
	}
}
