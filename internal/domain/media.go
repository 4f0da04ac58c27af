package domain

import (
	"strings"
	"time"
)

type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaDocument MediaKind = "document"
)

// MaxUploadSize is the default upper bound for a single uploaded file.
const MaxUploadSize int64 = 10 * 1024 * 1024

// AllowedMediaTypes maps accepted MIME types to the kind of media they produce.
var AllowedMediaTypes = map[string]MediaKind{
	"image/jpeg":      MediaImage,
	"image/png":       MediaImage,
	"image/gif":       MediaImage,
	"image/webp":      MediaImage,
	"application/pdf": MediaDocument,
}

type Media struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	URL       string    `db:"file_url" json:"url"`
	Kind      MediaKind `db:"file_type" json:"type"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	EventID   *string   `db:"event_id" json:"event_id,omitempty"` // nil when not linked
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (m Media) AttachmentID() string { return m.ID }

// MediaKindFor returns the media kind for a MIME type, or ErrUnsupportedMediaType.
func MediaKindFor(contentType string) (MediaKind, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	kind, ok := AllowedMediaTypes[mimeType]
	if !ok {
		return "", ErrUnsupportedMediaType
	}
	return kind, nil
}

func FilterMedia(media []Media, term string) []Media {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return media
	}

	var filtered []Media
	for _, m := range media {
		if containsFold(m.Title, term) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}
