package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MinStoryContentLength is the minimum number of characters a new story must contain.
const MinStoryContentLength = 50

type Story struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (s Story) AttachmentID() string { return s.ID }

type CreateStoryInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Validate checks the constraints enforced when a story is created.
func (in CreateStoryInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Content)) < MinStoryContentLength {
		return ErrStoryTooShort
	}
	return nil
}

func FilterStories(stories []Story, term string) []Story {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return stories
	}

	var filtered []Story
	for _, s := range stories {
		if containsFold(s.Title, term) || containsFold(s.Content, term) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
