// Package cache keeps every consumer of the same remote data
// synchronized without redundant network calls. Entries are keyed by
// resource and parameters, served stale-while-revalidate, and refetched
// only after an explicit invalidation; there is no TTL.
package cache

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Status is the fetch state of a cache entry.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Entry is an observer's view of one cache slot.
type Entry struct {
	Key    string
	Status Status
	Data   any
	Err    error
	// Stale marks data that has been invalidated but is still shown
	// while the refetch is in flight.
	Stale bool
}

// Fetcher loads the value for a key from the remote API.
type Fetcher func(ctx context.Context) (any, error)

type entry struct {
	status Status
	data   any
	err    error
	stale  bool
	// seq is the generation of the most recently issued fetch for this
	// key. Results from superseded fetches are discarded on arrival.
	seq uint64
}

func (e *entry) snapshot(key string) Entry {
	return Entry{
		Key:    key,
		Status: e.status,
		Data:   e.data,
		Err:    e.err,
		Stale:  e.stale,
	}
}

type Option func(*Cache)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// Cache is the invalidation-driven query cache.
type Cache struct {
	logger zerolog.Logger
	group  singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
	subs    map[int]func(key string)
	nextSub int
}

func New(opts ...Option) *Cache {
	c := &Cache{
		logger:  zerolog.Nop(),
		entries: make(map[string]*entry),
		subs:    make(map[int]func(key string)),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the current entry for key without triggering a fetch.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}

	return e.snapshot(key), true
}

// Subscribe registers an observer notified with the key of every
// committed change. The returned function cancels the subscription.
func (c *Cache) Subscribe(fn func(key string)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Read returns the entry for key, fetching it when needed.
//
// A fresh success entry is served as-is. A stale success entry is
// served immediately while a revalidation runs in the background, so a
// list stays visible instead of flickering back to a spinner. Anything
// else blocks on a fetch; concurrent readers of the same key share one
// in-flight call.
func (c *Cache) Read(ctx context.Context, key string, fetch Fetcher) (Entry, error) {
	c.mu.Lock()

	e, ok := c.entries[key]
	if !ok {
		e = &entry{status: StatusIdle}
		c.entries[key] = e
	}

	if e.status == StatusSuccess && !e.stale {
		snap := e.snapshot(key)
		c.mu.Unlock()
		return snap, nil
	}

	if e.status == StatusSuccess && e.stale {
		e.seq++
		seq := e.seq
		snap := e.snapshot(key)
		c.mu.Unlock()

		// The revalidation outlives the caller; it keeps the cache
		// consistent, not the caller's view.
		go c.fetchAndCommit(context.WithoutCancel(ctx), key, seq, fetch)

		return snap, nil
	}

	if e.status != StatusLoading {
		e.seq++
		e.status = StatusLoading
	}
	seq := e.seq
	c.mu.Unlock()

	data, err := c.fetchAndCommit(ctx, key, seq, fetch)
	if err != nil {
		return Entry{Key: key, Status: StatusError, Err: err}, err
	}

	return Entry{Key: key, Status: StatusSuccess, Data: data}, nil
}

// fetchAndCommit runs the fetch through the single-flight group and
// commits the result unless the generation was superseded meanwhile.
func (c *Cache) fetchAndCommit(ctx context.Context, key string, seq uint64, fetch Fetcher) (any, error) {
	data, err, _ := c.group.Do(key, func() (any, error) {
		return fetch(ctx)
	})

	c.commit(key, seq, data, err)

	return data, err
}

// commit stores a fetch result. A result whose generation is no longer
// the latest issued for its key (the entry was invalidated, or a newer
// fetch was issued) is discarded rather than overwriting newer state.
// Data is replaced atomically, never merged.
func (c *Cache) commit(key string, seq uint64, data any, err error) {
	c.mu.Lock()

	e, ok := c.entries[key]
	if !ok || seq != e.seq {
		// Superseded. Reset a dangling loading status so the next read
		// issues a clean fetch.
		if ok && e.status == StatusLoading {
			e.status = StatusIdle
		}
		c.mu.Unlock()
		c.logger.Debug().Str("key", key).Msg("discarded superseded result")
		return
	}

	if err != nil {
		e.status = StatusError
		e.err = err
	} else {
		e.status = StatusSuccess
		e.data = data
		e.err = nil
		e.stale = false
	}

	observers := make([]func(string), 0, len(c.subs))
	for _, fn := range c.subs {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	for _, fn := range observers {
		fn(key)
	}
}

// Invalidate marks every entry whose key starts with prefix as stale,
// forcing the next read for those keys to refetch. In-flight fetches
// for the affected keys are superseded so a pre-invalidation result
// cannot be committed as fresh.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()

	n := 0
	for key, e := range c.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		e.stale = true
		e.seq++
		if e.status == StatusLoading {
			e.status = StatusIdle
		}
		// Drop the shared in-flight call so post-invalidation readers
		// do not join a pre-invalidation fetch.
		c.group.Forget(key)
		n++
	}
	c.mu.Unlock()

	if n > 0 {
		c.logger.Debug().Str("prefix", prefix).Int("entries", n).Msg("cache invalidated")
	}

	return n
}
