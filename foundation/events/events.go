// Package events is the in-process activity feed. Node actors report
// one-line activity strings through their event handler; the feed fans
// each line out to every registered observer so a debug client can tail
// live node activity without touching the log pipeline.
package events

import (
	"fmt"
	"sync"
)

// feedBuffer is the per-observer backlog. An observer that falls this
// far behind starts losing lines rather than slowing the node down.
const feedBuffer = 100

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive the activity feed.
type Events struct {
	m  map[string]chan string
	mu sync.RWMutex
}

// New constructs an Events for registering and receiving activity lines.
func New() *Events {
	return &Events{
		m: make(map[string]chan string),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive the activity feed. Calling Acquire twice with the same id
// returns the same channel.
func (evt *Events) Acquire(id string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if exists {
		return ch
	}

	evt.m[id] = make(chan string, feedBuffer)
	return evt.m[id]
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)
	return nil
}

// Send fans a line out to every registered observer. Send will not block
// waiting for a receiver on any given channel.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.m {
		select {
		case ch <- s:
		default:
		}
	}
}
