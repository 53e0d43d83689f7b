package watch

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// CustomerKeyPrefix prefixes every persisted customer watch-history key.
const CustomerKeyPrefix = "customer:"

// WatchDateLayout is the only accepted watch date format.
const WatchDateLayout = "2006-01-02"

// Viewer is a single "watched by" entry of a watch event.
type Viewer struct {
	CustomerID string `json:"customer-id"`
	MovieID    string `json:"movie-id,omitempty"`
	Rating     int    `json:"rating"`
	Date       string `json:"date"`
}

// WatchEvent is one movie's metadata plus the customers who watched it.
// Decoded from one line of source input.
type WatchEvent struct {
	MovieID       string   `json:"movieId"`
	Title         string   `json:"title"`
	YearOfRelease int      `json:"yearOfRelease"`
	WatchedBy     []Viewer `json:"watchedBy"`
}

// WatchedMovie is one entry of a customer's watch history.
type WatchedMovie struct {
	MovieID       string `json:"movieId"`
	Title         string `json:"title"`
	YearOfRelease int    `json:"yearOfRelease"`
	Rating        int    `json:"rating"`
	Date          string `json:"date"`
}

// CustomerHistory is one customer's consolidated list of watched movies.
type CustomerHistory struct {
	CustomerID    string         `json:"customerId"`
	WatchedMovies []WatchedMovie `json:"watchedMovies"`
}

// WatchedMovieFor builds the history entry a viewer contributes for an event.
func WatchedMovieFor(ev *WatchEvent, v Viewer) WatchedMovie {
	return WatchedMovie{
		MovieID:       ev.MovieID,
		Title:         ev.Title,
		YearOfRelease: ev.YearOfRelease,
		Rating:        v.Rating,
		Date:          v.Date,
	}
}

// CustomerKey returns the backend store key for a customer.
func CustomerKey(customerID string) string {
	return CustomerKeyPrefix + customerID
}

// EncodeHistory serializes a customer history into its persisted form.
func EncodeHistory(h *CustomerHistory) ([]byte, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: nil history", ErrSerialization)
	}
	if h.WatchedMovies == nil {
		h.WatchedMovies = []WatchedMovie{}
	}
	b, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return b, nil
}

// DecodeHistory deserializes a persisted customer history.
func DecodeHistory(b []byte) (*CustomerHistory, error) {
	var h CustomerHistory
	if err := json.Unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return &h, nil
}

// ParseWatchDate parses a YYYY-MM-DD date as a calendar date in UTC.
func ParseWatchDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(WatchDateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %w", ErrDateParse, s, err)
	}
	return t, nil
}

// IsMoreRecent reports whether candidate is strictly later than existing.
// A parse failure on either side reports false along with the parse error.
func IsMoreRecent(candidate, existing string) (bool, error) {
	c, err := ParseWatchDate(candidate)
	if err != nil {
		return false, fmt.Errorf("candidate date: %w", err)
	}
	e, err := ParseWatchDate(existing)
	if err != nil {
		return false, fmt.Errorf("existing date: %w", err)
	}
	return c.After(e), nil
}
