package decoders

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/hankgalt/watch-history/internal/domain/watch"
)

const (
	ERR_EMPTY_LINE          = "empty line"
	ERR_NOT_AN_OBJECT       = "line is not a json object"
	ERR_MISSING_MOVIE_ID    = "movieId is required"
	ERR_MISSING_CUSTOMER_ID = "watchedBy customer-id is required"
)

var (
	ErrEmptyLine         = errors.New(ERR_EMPTY_LINE)
	ErrNotAnObject       = errors.New(ERR_NOT_AN_OBJECT)
	ErrMissingMovieID    = errors.New(ERR_MISSING_MOVIE_ID)
	ErrMissingCustomerID = errors.New(ERR_MISSING_CUSTOMER_ID)
)

// JSONLineDecoder decodes one JSON object per line into a watch event.
// Watch dates are not validated here, unparseable dates lose every recency comparison at merge.
type JSONLineDecoder struct{}

func NewJSONLineDecoder() JSONLineDecoder { return JSONLineDecoder{} }

// Decode implements watch.RecordDecoder. Errors wrap watch.ErrMalformedRecord.
func (JSONLineDecoder) Decode(line []byte) (*watch.WatchEvent, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, malformed(ErrEmptyLine)
	}
	if line[0] != '{' {
		return nil, malformed(ErrNotAnObject)
	}

	var ev watch.WatchEvent
	if err := json.Unmarshal(line, &ev); err != nil {
		return nil, malformed(err)
	}
	if ev.MovieID == "" {
		return nil, malformed(ErrMissingMovieID)
	}
	for i, v := range ev.WatchedBy {
		if v.CustomerID == "" {
			return nil, malformed(fmt.Errorf("watchedBy[%d]: %w", i, ErrMissingCustomerID))
		}
	}
	return &ev, nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %w", watch.ErrMalformedRecord, err)
}
