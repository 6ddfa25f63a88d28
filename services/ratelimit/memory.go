package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/gymhub/contentdesk/core"
)

type window struct {
	count   int
	resetAt time.Time
}

// memoryLimiter is a fixed window limiter for a single process (dev & tests).
type memoryLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	windows map[string]*window
	now     func() time.Time
}

var _ core.AttemptLimiter = (*memoryLimiter)(nil)

func NewMemoryLimiter(maxAttempts int, win time.Duration) core.AttemptLimiter {
	return &memoryLimiter{
		max:     maxAttempts,
		window:  win,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.window)}
		l.windows[key] = w
	}
	w.count++
	return w.count <= l.max, nil
}

func (l *memoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
	return nil
}
