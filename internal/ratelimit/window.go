package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/ecoscape/internal/clock"
)

// windowCounter is the single-process fallback used when no redis is configured.
type windowCounter struct {
	mu      sync.Mutex
	clock   clock.Clock
	window  time.Duration
	entries map[string]*windowEntry
	sweepAt time.Time
}

type windowEntry struct {
	start time.Time
	count int
}

func newWindowCounter(clk clock.Clock, window time.Duration) *windowCounter {
	return &windowCounter{
		clock:   clk,
		window:  window,
		entries: make(map[string]*windowEntry),
	}
}

func (w *windowCounter) Allow(_ context.Context, key string, limit int) (*Result, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if limit <= 0 {
		return nil, ErrInvalidRate
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	w.sweep(now)

	entry, ok := w.entries[key]
	if !ok || now.Sub(entry.start) >= w.window {
		entry = &windowEntry{start: now}
		w.entries[key] = entry
	}

	if entry.count >= limit {
		return &Result{
			Allowed:    false,
			Limit:      limit,
			RetryAfter: entry.start.Add(w.window).Sub(now),
		}, nil
	}
	entry.count++
	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - entry.count,
	}, nil
}

func (w *windowCounter) sweep(now time.Time) {
	if now.Before(w.sweepAt) {
		return
	}
	for key, entry := range w.entries {
		if now.Sub(entry.start) >= w.window {
			delete(w.entries, key)
		}
	}
	w.sweepAt = now.Add(w.window)
}
