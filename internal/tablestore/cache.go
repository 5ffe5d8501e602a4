package tablestore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/kristinelam/gotransit"
	"github.com/kristinelam/gotransit/pkg/metrics"
)

// Cache keeps tables in memory so that models created per request share them.
// Misses fall through to an optional backing store.
type Cache struct {
	mu      sync.RWMutex
	tables  map[gotransit.TableKey]*gotransit.Table
	backing gotransit.TableStore
	log     hclog.Logger
}

// NewCache returns a cache over backing, which may be nil.
func NewCache(backing gotransit.TableStore, logger hclog.Logger) *Cache {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Cache{
		tables:  make(map[gotransit.TableKey]*gotransit.Table),
		backing: backing,
		log:     logger,
	}
}

// Load implements gotransit.TableStore.
func (c *Cache) Load(ctx context.Context, key gotransit.TableKey) (*gotransit.Table, error) {
	c.mu.RLock()
	t, ok := c.tables[key]
	c.mu.RUnlock()
	if ok {
		metrics.RecordTableLookup("hit")
		return t, nil
	}

	if c.backing != nil {
		t, err := c.backing.Load(ctx, key)
		switch {
		case err == nil:
			metrics.RecordTableLookup("store")
			c.put(t)
			return t, nil
		case !errors.Is(err, gotransit.ErrTableNotFound):
			c.log.Warn("table store load failed", "key", key.String(), "error", err)
		}
	}
	metrics.RecordTableLookup("miss")
	return nil, fmt.Errorf("%w: %s", gotransit.ErrTableNotFound, key)
}

// Save implements gotransit.TableStore.
func (c *Cache) Save(ctx context.Context, t *gotransit.Table) error {
	c.put(t)
	if c.backing == nil {
		return nil
	}
	if err := c.backing.Save(ctx, t); err != nil {
		return err
	}
	c.log.Debug("table persisted", "key", t.Key().String())
	return nil
}

// Len returns the number of tables held in memory.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

func (c *Cache) put(t *gotransit.Table) {
	c.mu.Lock()
	c.tables[t.Key()] = t
	c.mu.Unlock()
}
