package catalog

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/dalylak/internal/core/domain"
	"github.com/kirillkom/dalylak/internal/core/ports"
)

// CachedStore keeps a snapshot of an upstream catalog for ttl.
// Concurrent refreshes are coalesced into one upstream read.
type CachedStore struct {
	next ports.CatalogStore
	ttl  time.Duration
	now  func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	records   []domain.CatalogRecord
	fetchedAt time.Time
	loaded    bool
}

func NewCachedStore(next ports.CatalogStore, ttl time.Duration) *CachedStore {
	return &CachedStore{next: next, ttl: ttl, now: time.Now}
}

func (c *CachedStore) ListRecords(ctx context.Context) ([]domain.CatalogRecord, error) {
	c.mu.RLock()
	if c.loaded && c.now().Sub(c.fetchedAt) < c.ttl {
		records := c.records
		c.mu.RUnlock()
		return records, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("catalog", func() (any, error) {
		records, err := c.next.ListRecords(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.records = records
		c.fetchedAt = c.now()
		c.loaded = true
		c.mu.Unlock()
		return records, nil
	})
	if err != nil {
		c.mu.RLock()
		defer c.mu.RUnlock()
		// Serve the stale snapshot rather than failing resolution outright.
		if c.loaded {
			return c.records, nil
		}
		return nil, err
	}
	return v.([]domain.CatalogRecord), nil
}

// Invalidate forces the next read to go upstream. The old snapshot is kept
// as the stale fallback in case that read fails.
func (c *CachedStore) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}
