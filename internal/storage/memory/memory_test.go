package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"souviens_toi/internal/auth"
	"souviens_toi/internal/domain"
	"souviens_toi/testdata/utils"
)

const (
	alice = "6f1c1f2e-1111-4c1a-9a55-000000000001"
	bob   = "6f1c1f2e-2222-4c1a-9a55-000000000002"
)

func as(userID string) context.Context {
	return auth.WithUser(context.Background(), &auth.User{ID: userID})
}

func seed(t *testing.T, s *Store, ctx context.Context) (domain.Event, domain.Story) {
	t.Helper()
	e := domain.Event{Title: "Wedding", Date: time.Date(1970, 6, 1, 0, 0, 0, 0, time.UTC), UserID: auth.CurrentUserID(ctx)}
	require.NoError(t, s.Events().Create(ctx, &e))
	st := domain.Story{Title: "How we met", Content: "...", UserID: auth.CurrentUserID(ctx)}
	require.NoError(t, s.Stories().Create(ctx, &st))
	return e, st
}

func TestEventStories_InsertRejectsDuplicate(t *testing.T) {
	s := NewStore()
	ctx := as(alice)
	e, st := seed(t, s, ctx)

	link := domain.EventStoryLink{EventID: e.ID, StoryID: st.ID}
	require.NoError(t, s.EventStories().Insert(ctx, link))
	assert.ErrorIs(t, s.EventStories().Insert(ctx, link), domain.ErrAlreadyLinked)

	ids, err := s.EventStories().StoryIDsByEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{st.ID}, ids)

	require.NoError(t, s.EventStories().Delete(ctx, link))
	require.NoError(t, s.EventStories().Delete(ctx, link))
	ids, _ = s.EventStories().StoryIDsByEvent(ctx, e.ID)
	assert.Empty(t, ids)
}

func TestEventStories_InsertUnknownReference(t *testing.T) {
	s := NewStore()
	ctx := as(alice)
	e, _ := seed(t, s, ctx)

	err := s.EventStories().Insert(ctx, domain.EventStoryLink{EventID: e.ID, StoryID: "missing"})
	assert.ErrorIs(t, err, domain.ErrInvalidReference)
}

func TestStories_NewestFirstAndGetByIDs(t *testing.T) {
	s := NewStore()
	ctx := as(alice)
	first := domain.Story{Title: "first", UserID: alice}
	second := domain.Story{Title: "second", UserID: alice}
	require.NoError(t, s.Stories().Create(ctx, &first))
	require.NoError(t, s.Stories().Create(ctx, &second))

	list, err := s.Stories().ListNewestFirst(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title)

	got, err := s.Stories().GetByIDs(ctx, []string{first.ID, "missing", second.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
}

func TestMedia_AttachDetach(t *testing.T) {
	s := NewStore()
	ctx := as(alice)
	e, _ := seed(t, s, ctx)
	other := domain.Event{Title: "Birth", UserID: alice}
	require.NoError(t, s.Events().Create(ctx, &other))

	m := domain.Media{Title: "photo", URL: "u", Kind: domain.MediaImage, FileSize: 10, UserID: alice}
	require.NoError(t, s.Media().Create(ctx, &m))

	require.NoError(t, s.Media().AttachToEvent(ctx, m.ID, e.ID))
	linked, err := s.Media().ListByEvent(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)

	// detaching from an event the media is not linked to changes nothing
	require.NoError(t, s.Media().DetachFromEvent(ctx, m.ID, other.ID))
	got, err := s.Media().Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, utils.Ptr(e.ID), got.EventID)

	require.NoError(t, s.Media().DetachFromEvent(ctx, m.ID, e.ID))
	got, _ = s.Media().Get(ctx, m.ID)
	assert.Nil(t, got.EventID)

	assert.ErrorIs(t, s.Media().AttachToEvent(ctx, "missing", e.ID), domain.ErrNotFound)
	assert.ErrorIs(t, s.Media().AttachToEvent(ctx, m.ID, "missing"), domain.ErrInvalidReference)
}

func TestMedia_DeleteAndTotals(t *testing.T) {
	s := NewStore()
	ctx := as(alice)
	a := domain.Media{Title: "a", FileSize: 100, UserID: alice}
	b := domain.Media{Title: "b", FileSize: 50, UserID: alice}
	require.NoError(t, s.Media().Create(ctx, &a))
	require.NoError(t, s.Media().Create(ctx, &b))

	count, size, err := s.Media().Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, int64(150), size)

	require.NoError(t, s.Media().Delete(ctx, a.ID))
	assert.ErrorIs(t, s.Media().Delete(ctx, a.ID), domain.ErrNotFound)

	count, size, _ = s.Media().Totals(ctx)
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(50), size)
}

func TestRowsAreScopedToUser(t *testing.T) {
	s := NewStore()
	e, _ := seed(t, s, as(alice))

	_, err := s.Events().Get(as(bob), e.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, _ := s.Events().Count(as(bob))
	assert.Equal(t, 0, n)
	n, _ = s.Events().Count(as(alice))
	assert.Equal(t, 1, n)
	n, _ = s.Events().Count(context.Background())
	assert.Equal(t, 1, n)
}

func TestEventStories_DeleteIgnoresOtherUsersLinks(t *testing.T) {
	s := NewStore()
	ctx := as(alice)
	e, st := seed(t, s, ctx)
	link := domain.EventStoryLink{EventID: e.ID, StoryID: st.ID}
	require.NoError(t, s.EventStories().Insert(ctx, link))

	require.NoError(t, s.EventStories().Delete(as(bob), link))

	ids, err := s.EventStories().StoryIDsByEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{st.ID}, ids)
}
