package gamemaster

import (
	"context"
	"sync"
)

// Feed is an in-process publisher. Readers poll it with Next; Publish blocks
// when the buffer is full.
type Feed struct {
	updates chan Update
	mu      sync.RWMutex
	last    *Update
}

func NewFeed(size int) *Feed {
	return &Feed{updates: make(chan Update, size)}
}

func (f *Feed) Publish(ctx context.Context, u Update) error {
	f.mu.Lock()
	f.last = &u
	f.mu.Unlock()

	select {
	case f.updates <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the oldest unread update, if any.
func (f *Feed) Next() (Update, bool) {
	select {
	case u := <-f.updates:
		return u, true
	default:
		// No updates yet
		return Update{}, false
	}
}

// Updates exposes the feed for range loops.
func (f *Feed) Updates() <-chan Update {
	return f.updates
}

// Last returns the most recent update, if any was published.
func (f *Feed) Last() (Update, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.last == nil {
		return Update{}, false
	}
	return *f.last, true
}
