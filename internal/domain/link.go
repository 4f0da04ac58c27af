package domain

import "time"

// AttachmentKind names the kind of item that can be linked to an event.
type AttachmentKind string

const (
	KindStory AttachmentKind = "story"
	KindMedia AttachmentKind = "media"
)

// Plural is used in user-facing messages.
func (k AttachmentKind) Plural() string {
	if k == KindStory {
		return "stories"
	}
	return string(k)
}

type EventStoryLink struct {
	EventID string `db:"event_id" json:"event_id"`
	StoryID string `db:"story_id" json:"story_id"`
}

type LinkAction string

const (
	ActionLink   LinkAction = "link"
	ActionUnlink LinkAction = "unlink"
)

// LinkChange describes a successful link or unlink.
type LinkChange struct {
	Kind    AttachmentKind `json:"kind"`
	Action  LinkAction     `json:"action"`
	EventID string         `json:"event_id"`
	ItemID  string         `json:"item_id"`
	At      time.Time      `json:"at"`
}

// IsPlaceholderID reports whether id is missing or one of the markers a
// client sends when no event is selected.
func IsPlaceholderID(id string) bool {
	switch id {
	case "", "undefined", "null":
		return true
	}
	return false
}

type Stats struct {
	Events     int   `json:"events"`
	Stories    int   `json:"stories"`
	Media      int   `json:"media"`
	MediaBytes int64 `json:"media_bytes"`
}
