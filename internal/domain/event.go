package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

type Event struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Date        time.Time `db:"date" json:"date"`
	PreciseDate bool      `db:"precise_date" json:"precise_date"` // false: only the year is meaningful
	Location    *string   `db:"location" json:"location,omitempty"`
	UserID      string    `db:"user_id" json:"user_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// DisplayDate renders the event date, year only when the exact day is unknown.
func (e Event) DisplayDate() string {
	if e.Date.IsZero() {
		return ""
	}
	if !e.PreciseDate {
		return strconv.Itoa(e.Date.Year())
	}
	return e.Date.Format("2 January 2006")
}

type CreateEventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	PreciseDate bool      `json:"precise_date"`
	Location    *string   `json:"location,omitempty"`
}

// SortEventsByDate returns a chronologically ordered copy.
func SortEventsByDate(events []Event) []Event {
	sorted := append([]Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

func FilterEvents(events []Event, term string) []Event {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return events
	}

	var filtered []Event
	for _, e := range events {
		if containsFold(e.Title, term) || containsFold(e.Description, term) ||
			(e.Location != nil && containsFold(*e.Location, term)) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func containsFold(s, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(s), lowerTerm)
}
