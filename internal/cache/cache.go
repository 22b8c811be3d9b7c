// Package cache owns the in-session thread list. Writers never patch it;
// they call Invalidate, which refetches every page from the thread
// source.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nhle/inbox-triage/internal/model"
	"github.com/nhle/inbox-triage/internal/store"
)

// maxPages guards against a thread source that never reports the end.
const maxPages = 200

// ThreadCache holds the most recent full fetch of visible threads.
type ThreadCache struct {
	source   store.ThreadSource
	query    store.ThreadQuery
	now      func() time.Time
	mutex    sync.RWMutex
	refetch  sync.Mutex
	threads  []model.Thread
	fetched  time.Time
	revision uint64
}

// New creates a cache that loads pages described by query (the cursor is
// ignored).
func New(source store.ThreadSource, query store.ThreadQuery) *ThreadCache {
	query.Cursor = store.Cursor{}
	return &ThreadCache{source: source, query: query, now: time.Now}
}

// SetQuery replaces the query used by later refetches. The cached list
// is left alone until the next Invalidate.
func (c *ThreadCache) SetQuery(query store.ThreadQuery) {
	query.Cursor = store.Cursor{}
	c.mutex.Lock()
	c.query = query
	c.mutex.Unlock()
}

// Query returns the query refetches use.
func (c *ThreadCache) Query() store.ThreadQuery {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.query
}

// Threads returns a copy of the cached threads.
func (c *ThreadCache) Threads() []model.Thread {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	out := make([]model.Thread, len(c.threads))
	copy(out, c.threads)
	return out
}

// FetchedAt returns when the cache was last refetched, or the zero time.
func (c *ThreadCache) FetchedAt() time.Time {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.fetched
}

// Staleness returns how long ago the cache was refetched. A cache that
// has never loaded is infinitely stale.
func (c *ThreadCache) Staleness() time.Duration {
	fetched := c.FetchedAt()
	if fetched.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return c.now().Sub(fetched)
}

// Revision increments on every successful refetch.
func (c *ThreadCache) Revision() uint64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.revision
}

// Invalidate discards the cached list and refetches all pages. On error
// the previous contents stay in place. Concurrent calls are serialized.
func (c *ThreadCache) Invalidate(ctx context.Context) error {
	c.refetch.Lock()
	defer c.refetch.Unlock()

	var all []model.Thread
	q := c.Query()
	for page := 0; ; page++ {
		if page == maxPages {
			return fmt.Errorf("refetching threads: exceeded %d pages", maxPages)
		}
		res, err := c.source.ListThreads(ctx, q)
		if err != nil {
			return fmt.Errorf("refetching threads: %w", err)
		}
		all = append(all, res.Threads...)
		if !res.HasMore {
			break
		}
		q.Cursor = res.Next
	}

	c.mutex.Lock()
	c.threads = all
	c.fetched = c.now()
	c.revision++
	c.mutex.Unlock()
	return nil
}
