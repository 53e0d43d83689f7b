package aggregator

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cenkalti/backoff/v5"
	"github.com/comfforts/logger"

	"github.com/hankgalt/watch-history/internal/domain/watch"
)

const (
	// MAX_LINE_SIZE bounds a single input line. Longer lines are skipped as malformed.
	MAX_LINE_SIZE    = 4 * 1024 * 1024
	READ_BUFFER_SIZE = 64 * 1024
)

const ERR_LINE_TOO_LONG = "line exceeds max line size"

var ErrLineTooLong = errors.New(ERR_LINE_TOO_LONG)

// Ingester reads source files into an aggregation map, retrying whole files on io failures.
type Ingester struct {
	source      watch.Source
	decoder     watch.RecordDecoder
	cfg         watch.RunConfig
	maxLineSize int
	metrics     *runMetrics
}

func NewIngester(src watch.Source, dec watch.RecordDecoder, cfg watch.RunConfig) *Ingester {
	return &Ingester{
		source:      src,
		decoder:     dec,
		cfg:         cfg.WithDefaults(),
		maxLineSize: MAX_LINE_SIZE,
		metrics:     newRunMetrics(nil),
	}
}

// WithMaxLineSize overrides the line size bound.
func (in *Ingester) WithMaxLineSize(n int) *Ingester {
	if n > 0 {
		in.maxLineSize = n
	}
	return in
}

// staged holds what one attempt decoded. It is folded only when the attempt succeeds.
type staged struct {
	events    []*watch.WatchEvent
	lines     int
	malformed int
}

// IngestFile reads, decodes & folds one file into aggMap.
// It never returns an error, failures are reported in the result.
func (in *Ingester) IngestFile(ctx context.Context, fileID string, aggMap *AggregationMap) watch.FileResult {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	res := watch.FileResult{FileID: fileID}
	attempt := func() (*staged, error) {
		if err := ctx.Err(); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("%w: %w", watch.ErrTransientIO, err))
		}
		res.Attempts++

		st, err := in.readFile(ctx, fileID)
		res.Lines, res.Malformed = st.lines, st.malformed
		if err != nil {
			l.Warn(
				"ingest attempt failed",
				"file", fileID,
				"attempt", res.Attempts,
				"max-attempts", in.cfg.MaxRetries,
				"error", err.Error(),
			)
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return st, nil
	}

	st, err := backoff.Retry(
		ctx,
		attempt,
		backoff.WithBackOff(in.backOff()),
		backoff.WithMaxTries(uint(in.cfg.MaxRetries)),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		if !errors.Is(err, watch.ErrTransientIO) {
			err = fmt.Errorf("%w: %w", watch.ErrTransientIO, err)
		}
		res.Status = watch.FileFailed
		res.Error = err.Error()
		in.metrics.recordFile(ctx, res)
		l.Error("file ingestion failed, skipping", "file", fileID, "attempts", res.Attempts, "error", res.Error)
		return res
	}

	res.Records = len(st.events)
	res.Viewers = aggMap.FoldAll(st.events)
	res.Status = watch.FileSucceeded
	in.metrics.recordFile(ctx, res)
	l.Debug(
		"file ingested",
		"file", fileID,
		"attempt", res.Attempts,
		"records", res.Records,
		"viewers", res.Viewers,
		"malformed", res.Malformed,
	)
	return res
}

// backOff waits RetryBackoff before the first retry, growing exponentially after that.
func (in *Ingester) backOff() backoff.BackOff {
	if in.cfg.RetryBackoff <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = in.cfg.RetryBackoff
	b.Multiplier = 2
	return b
}

// readFile makes one attempt at reading & decoding a file.
func (in *Ingester) readFile(ctx context.Context, fileID string) (*staged, error) {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	if in.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.cfg.AttemptTimeout)
		defer cancel()
	}

	st := &staged{}
	rc, err := in.source.Open(ctx, fileID)
	if err != nil {
		return st, fmt.Errorf("%w: open %s: %w", watch.ErrTransientIO, fileID, err)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			l.Error("error closing source file", "file", fileID, "error", err.Error())
		}
	}()

	br := bufio.NewReaderSize(rc, READ_BUFFER_SIZE)
	lineNum := 0
	for {
		raw, tooLong, readErr := readLine(br, in.maxLineSize)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return st, fmt.Errorf("%w: read %s: %w", watch.ErrTransientIO, fileID, readErr)
		}
		if err := ctx.Err(); err != nil {
			return st, fmt.Errorf("%w: read %s: %w", watch.ErrTransientIO, fileID, err)
		}
		eof := readErr != nil
		if eof && len(raw) == 0 && !tooLong {
			break
		}
		lineNum++

		if tooLong {
			st.lines++
			st.malformed++
			l.Warn(
				"skipping malformed record",
				"file", fileID,
				"line", lineNum,
				"error", fmt.Errorf("%w: %w", watch.ErrMalformedRecord, ErrLineTooLong).Error(),
			)
		} else if line := bytes.TrimSpace(raw); len(line) > 0 {
			st.lines++
			ev, err := in.decoder.Decode(line)
			if err != nil {
				st.malformed++
				l.Warn("skipping malformed record", "file", fileID, "line", lineNum, "error", err.Error())
			} else {
				st.events = append(st.events, ev)
			}
		}

		if eof {
			break
		}
	}
	return st, nil
}

// readLine returns the next line, newline included. A line longer than limit is
// drained from the reader & reported as too long, with no content.
func readLine(br *bufio.Reader, limit int) ([]byte, bool, error) {
	var line []byte
	tooLong := false
	for {
		frag, err := br.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(frag) > limit+2 {
				tooLong, line = true, nil
			} else {
				line = append(line, frag...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if !tooLong && len(bytes.TrimRight(line, "\r\n")) > limit {
			tooLong, line = true, nil
		}
		return line, tooLong, err
	}
}
