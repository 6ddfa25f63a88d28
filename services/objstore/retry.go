package objstore

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/gymhub/contentdesk/core"
)

// backoff is the wait before the nth retry, multiplied by n.
var backoff = 500 * time.Millisecond

type retryStore struct {
	core.ObjectStore
	attempts int
	timeout  time.Duration
	logger   core.Logger
}

// WithRetry retries failed uploads of store, up to attempts tries in total. Each try is bounded by timeout.
// Seekable content is rewound between tries, anything else is buffered once so it can be replayed.
func WithRetry(store core.ObjectStore, attempts int, timeout time.Duration, logger core.Logger) core.ObjectStore {
	if attempts < 1 {
		attempts = 1
	}
	return &retryStore{ObjectStore: store, attempts: attempts, timeout: timeout, logger: logger}
}

func (s *retryStore) Upload(ctx context.Context, path string, r io.Reader, contentType string) error {
	replay, err := replayable(r)
	if err != nil {
		return core.NewUpstreamError("reading "+path, err)
	}

	for attempt := 1; ; attempt++ {
		body, err := replay()
		if err != nil {
			return core.NewUpstreamError("rewinding "+path, err)
		}
		err = s.try(ctx, path, body, contentType)
		if err == nil {
			return nil
		}
		if attempt >= s.attempts || ctx.Err() != nil {
			return err
		}
		if s.logger != nil {
			s.logger.Warn("upload failed, retrying", err, "path", path, "attempt", attempt)
		}

		select {
		case <-ctx.Done():
			return core.NewUpstreamError("uploading "+path, ctx.Err())
		case <-time.After(time.Duration(attempt) * backoff):
		}
	}
}

func (s *retryStore) try(ctx context.Context, path string, body io.Reader, contentType string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.ObjectStore.Upload(ctx, path, body, contentType)
}

// replayable returns a func yielding the content of r from its current offset on every call.
func replayable(r io.Reader) (func() (io.Reader, error), error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		start, err := rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		return func() (io.Reader, error) {
			_, err := rs.Seek(start, io.SeekStart)
			return rs, err
		}, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return func() (io.Reader, error) { return bytes.NewReader(data), nil }, nil
}
