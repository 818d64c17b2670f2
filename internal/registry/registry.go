// Package registry manages the lifecycle of streams: lazy creation on first
// interest, listener ref-counting, and disposal when the last listener
// leaves. The reserved general timeline stream is kept warm process-wide.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/frostlabs/pulse/internal/bus"
	"github.com/frostlabs/pulse/internal/streamid"
	"github.com/rs/zerolog/log"
)

// Factory builds a new stream's topic subscriptions. It runs at most once
// per live stream id; the bus is discarded if it returns an error.
type Factory func(ctx context.Context, b *bus.Bus) error

// Registry maps stream ids to live streams. Mutations are serialized per
// stream id so unrelated streams stay fully concurrent.
type Registry struct {
	exchange *bus.Exchange

	mu      sync.Mutex
	entries map[streamid.ID]*entry
}

// entry carries the per-id lock. stream is nil until the factory has run.
// A disposed entry is marked dead so that a waiter holding a stale pointer
// re-fetches instead of resurrecting it outside the registry map.
type entry struct {
	mu     sync.Mutex
	stream *Stream
	dead   bool
}

// New creates an empty registry backed by the exchange.
func New(exchange *bus.Exchange) *Registry {
	return &Registry{
		exchange: exchange,
		entries:  make(map[streamid.ID]*entry),
	}
}

func (r *Registry) entryFor(id streamid.ID) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[id]
	if e == nil {
		e = &entry{}
		r.entries[id] = e
	}
	return e
}

// Subscribe returns a listener attached to the stream for id, creating the
// stream via build on first interest. Two concurrent calls for the same new
// id run build exactly once; the second observes the first's stream. If
// build fails no stream is registered and the error is returned.
func (r *Registry) Subscribe(ctx context.Context, id streamid.ID, build Factory, h bus.Handler) (*bus.Listener, error) {
	var e *entry
	for {
		e = r.entryFor(id)
		e.mu.Lock()
		if !e.dead {
			break
		}
		e.mu.Unlock()
	}
	defer e.mu.Unlock()

	if e.stream == nil {
		b := r.exchange.NewBus()
		if err := build(ctx, b); err != nil {
			b.Dispose()
			return nil, fmt.Errorf("build stream %s: %w", id, err)
		}
		e.stream = &Stream{
			id:         id,
			bus:        b,
			persistent: streamid.IsPersistent(id),
		}
		log.Debug().Str("stream_id", id.String()).Bool("persistent", e.stream.persistent).Msg("stream created")
	}

	return e.stream.bus.AddListener(h), nil
}

// Unsubscribe cancels the listener. When the stream's listener count reaches
// zero the stream is disposed and dropped — unless it is persistent.
func (r *Registry) Unsubscribe(id streamid.ID, l *bus.Listener) {
	r.mu.Lock()
	e := r.entries[id]
	r.mu.Unlock()

	if e == nil {
		l.Cancel()
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dead || e.stream == nil {
		l.Cancel()
		return
	}

	e.stream.bus.RemoveListener(l)

	if e.stream.bus.ListenerCount() > 0 || e.stream.persistent {
		return
	}

	e.stream.bus.Dispose()
	e.stream = nil
	e.dead = true

	r.mu.Lock()
	if r.entries[id] == e {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	log.Debug().Str("stream_id", id.String()).Msg("stream disposed")
}

// Get returns the live stream for id, or nil.
func (r *Registry) Get(id streamid.ID) *Stream {
	r.mu.Lock()
	e := r.entries[id]
	r.mu.Unlock()

	if e == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stream
}

// Contains reports whether a live stream exists for id.
func (r *Registry) Contains(id streamid.ID) bool {
	return r.Get(id) != nil
}

// Len returns the number of live streams.
func (r *Registry) Len() int {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	n := 0
	for _, e := range entries {
		e.mu.Lock()
		if e.stream != nil {
			n++
		}
		e.mu.Unlock()
	}
	return n
}
