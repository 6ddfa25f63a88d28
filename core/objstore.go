package core

import (
	"context"
	"io"
)

// ObjectStore is the blob storage uploads go to.
type ObjectStore interface {
	Upload(ctx context.Context, path string, r io.Reader, contentType string) error
	PublicURL(path string) string
}

// AttemptLimiter throttles repeated attempts (e.g. PIN logins) per key.
type AttemptLimiter interface {
	// Allow records an attempt for key and reports whether it is within the limit.
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}
