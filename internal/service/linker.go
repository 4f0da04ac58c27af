package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"souviens_toi/internal/domain"
	"souviens_toi/internal/notify"
)

// Attachment is anything that can be linked to an event.
type Attachment interface {
	AttachmentID() string
}

// LinkStrategy hides how an attachment kind is associated with an event
// (join rows for stories, a foreign key for media).
type LinkStrategy[T Attachment] interface {
	Linked(ctx context.Context, eventID string) ([]T, error)
	LinkedIDs(ctx context.Context, eventID string) ([]string, error)
	// All returns every item of this kind, newest first.
	All(ctx context.Context) ([]T, error)
	Add(ctx context.Context, eventID, itemID string) error
	Remove(ctx context.Context, eventID, itemID string) error
}

// ChangeFunc is called after every successful link or unlink.
type ChangeFunc func(ctx context.Context, change domain.LinkChange)

// Linker maintains the associations between events and one attachment kind.
// It does not cache: every list call goes to the store.
type Linker[T Attachment] struct {
	kind     domain.AttachmentKind
	strategy LinkStrategy[T]
	tx       TransactionManager
	notifier notify.Notifier
	logger   *slog.Logger

	mu          sync.RWMutex
	nextSubID   int
	subscribers map[int]ChangeFunc
}

func NewLinker[T Attachment](
	kind domain.AttachmentKind,
	strategy LinkStrategy[T],
	tx TransactionManager,
	notifier notify.Notifier,
	logger *slog.Logger,
) *Linker[T] {
	return &Linker[T]{
		kind:        kind,
		strategy:    strategy,
		tx:          tx,
		notifier:    notifier,
		logger:      logger.With("kind", string(kind)),
		subscribers: make(map[int]ChangeFunc),
	}
}

func (l *Linker[T]) Kind() domain.AttachmentKind {
	return l.kind
}

// ListLinked returns the items currently linked to eventID. A placeholder
// event id yields an empty list without touching the store. On failure the
// user is notified and the result is empty.
func (l *Linker[T]) ListLinked(ctx context.Context, eventID string) ([]T, error) {
	if domain.IsPlaceholderID(eventID) {
		l.logger.Warn("list linked skipped: no event selected", "event_id", eventID)
		return []T{}, nil
	}

	var items []T
	err := l.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		items, err = l.strategy.Linked(txCtx, eventID)
		return err
	})
	if err != nil {
		l.fail(ctx, "Failed to load linked "+l.kind.Plural(), err, "event_id", eventID)
		return []T{}, fmt.Errorf("list linked %s: %w", l.kind.Plural(), err)
	}

	return nonNil(items), nil
}

// ListLinkable returns the items not yet linked to eventID, newest first.
func (l *Linker[T]) ListLinkable(ctx context.Context, eventID string) ([]T, error) {
	if domain.IsPlaceholderID(eventID) {
		l.logger.Warn("list linkable skipped: no event selected", "event_id", eventID)
		return []T{}, nil
	}

	var all []T
	var linkedIDs []string
	err := l.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if all, err = l.strategy.All(txCtx); err != nil {
			return fmt.Errorf("list all: %w", err)
		}
		if len(all) == 0 {
			return nil
		}
		if linkedIDs, err = l.strategy.LinkedIDs(txCtx, eventID); err != nil {
			return fmt.Errorf("list linked ids: %w", err)
		}
		return nil
	})
	if err != nil {
		l.fail(ctx, "Failed to load "+l.kind.Plural(), err, "event_id", eventID)
		return []T{}, fmt.Errorf("list linkable %s: %w", l.kind.Plural(), err)
	}

	return difference(all, linkedIDs), nil
}

// Link associates itemID with eventID. It does not check for an existing
// link; a duplicate is rejected by the store, if at all. applied is false when
// a placeholder id made it skip the store.
func (l *Linker[T]) Link(ctx context.Context, eventID, itemID string) (applied bool, err error) {
	return l.mutate(ctx, domain.ActionLink, eventID, itemID, l.strategy.Add)
}

// Unlink removes the association. Unlinking a pair that is not linked succeeds.
func (l *Linker[T]) Unlink(ctx context.Context, eventID, itemID string) (applied bool, err error) {
	return l.mutate(ctx, domain.ActionUnlink, eventID, itemID, l.strategy.Remove)
}

// Subscribe registers fn to be called after each successful mutation and
// returns a function that removes the subscription.
func (l *Linker[T]) Subscribe(fn ChangeFunc) func() {
	l.mu.Lock()
	id := l.nextSubID
	l.nextSubID++
	l.subscribers[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subscribers, id)
		l.mu.Unlock()
	}
}

func (l *Linker[T]) mutate(
	ctx context.Context,
	action domain.LinkAction,
	eventID, itemID string,
	op func(ctx context.Context, eventID, itemID string) error,
) (bool, error) {
	if domain.IsPlaceholderID(eventID) || domain.IsPlaceholderID(itemID) {
		l.logger.Warn(string(action)+" skipped: missing identifier", "event_id", eventID, "item_id", itemID)
		l.notifier.Notify(ctx, notify.Warning, "Select an event and a "+string(l.kind)+" first")
		return false, nil
	}

	err := l.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return op(txCtx, eventID, itemID)
	})
	if err != nil {
		l.fail(ctx, fmt.Sprintf("Failed to %s %s", action, l.kind), err, "event_id", eventID, "item_id", itemID)
		return false, fmt.Errorf("%s %s: %w", action, l.kind, err)
	}

	l.logger.Info(string(action)+" succeeded", "event_id", eventID, "item_id", itemID)
	l.notifier.Notify(ctx, notify.Success, fmt.Sprintf("%s %sed", capitalize(string(l.kind)), action))
	l.publish(ctx, domain.LinkChange{
		Kind:    l.kind,
		Action:  action,
		EventID: eventID,
		ItemID:  itemID,
		At:      time.Now().UTC(),
	})
	return true, nil
}

func (l *Linker[T]) publish(ctx context.Context, change domain.LinkChange) {
	l.mu.RLock()
	subs := make([]ChangeFunc, 0, len(l.subscribers))
	for _, fn := range l.subscribers {
		subs = append(subs, fn)
	}
	l.mu.RUnlock()

	for _, fn := range subs {
		fn(ctx, change)
	}
}

func (l *Linker[T]) fail(ctx context.Context, message string, err error, attrs ...any) {
	l.logger.Error(message, append(attrs, "error", err)...)
	l.notifier.Notify(ctx, notify.Error, message)
}

func difference[T Attachment](all []T, excludeIDs []string) []T {
	exclude := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		exclude[id] = struct{}{}
	}

	out := make([]T, 0, len(all))
	for _, item := range all {
		if _, linked := exclude[item.AttachmentID()]; !linked {
			out = append(out, item)
		}
	}
	return out
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
