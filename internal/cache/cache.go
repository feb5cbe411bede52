package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ctrl-sourav/SkyCast/internal/models"
	"github.com/ctrl-sourav/SkyCast/internal/owm"
)

// Cache stores assembled dashboards by location key.
type Cache interface {
	Get(ctx context.Context, key string) (models.Dashboard, bool)
	Set(ctx context.Context, key string, d models.Dashboard)
}

// Key normalises a query. Coordinates are rounded to two decimals so nearby
// lookups share an entry.
func Key(q owm.Query) string {
	if q.ByCoords {
		return fmt.Sprintf("coord:%.2f,%.2f", q.Lat, q.Lon)
	}
	return "place:" + strings.ToLower(strings.TrimSpace(q.Place))
}

type entry struct {
	data      models.Dashboard
	expiresAt time.Time
}

type Memory struct {
	mu    sync.RWMutex
	items map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{items: make(map[string]entry), ttl: ttl, now: time.Now}
}

func (c *Memory) Get(_ context.Context, key string) (models.Dashboard, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || c.now().After(e.expiresAt) {
		return models.Dashboard{}, false
	}
	return e.data, true
}

func (c *Memory) Set(_ context.Context, key string, data models.Dashboard) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry{data: data, expiresAt: c.now().Add(c.ttl)}
	c.evictLocked()
}

// evictLocked drops expired entries; called on write so the map stays
// bounded by the set of live keys.
func (c *Memory) evictLocked() {
	now := c.now()
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
		}
	}
}
