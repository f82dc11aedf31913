// Package subitems caches the child rows of items and tracks which items are
// expanded in the board view.
package subitems

import (
	"context"
	"sync"

	"tablero/internal/logger"
	"tablero/internal/model"
)

// Fetcher loads the subitems of one item.
type Fetcher interface {
	Subitems(ctx context.Context, itemID string) ([]model.SubItemRow, error)
}

// Cache fetches an item's subitems at most once while the entry is warm.
type Cache struct {
	api Fetcher

	mu       sync.Mutex
	rows     map[string][]model.SubItemRow
	expanded map[string]bool
	loading  map[string]bool
	gen      uint64
}

func New(api Fetcher) *Cache {
	return &Cache{
		api:      api,
		rows:     make(map[string][]model.SubItemRow),
		expanded: make(map[string]bool),
		loading:  make(map[string]bool),
	}
}

// Toggle collapses an expanded item, or expands it and fetches its subitems
// when nothing is cached or in flight. A failed fetch collapses the item
// again so the next expand retries.
func (c *Cache) Toggle(ctx context.Context, itemID string) error {
	c.mu.Lock()
	if c.expanded[itemID] {
		delete(c.expanded, itemID)
		c.mu.Unlock()
		return nil
	}
	c.expanded[itemID] = true
	if _, ok := c.rows[itemID]; ok || c.loading[itemID] {
		c.mu.Unlock()
		return nil
	}
	c.loading[itemID] = true
	gen := c.gen
	c.mu.Unlock()

	rows, err := c.api.Subitems(ctx, itemID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	delete(c.loading, itemID)
	if err != nil {
		delete(c.expanded, itemID)
		logger.Error("Error al obtener subitems de %s: %v", itemID, err)
		return err
	}
	if rows == nil {
		rows = []model.SubItemRow{}
	}
	c.rows[itemID] = rows
	logger.Store("cached %d subitems for %s", len(rows), itemID)
	return nil
}

// Append adds a row under itemID, replacing any row with the same id.
func (c *Cache) Append(itemID string, row model.SubItemRow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows := c.rows[itemID]
	for i := range rows {
		if rows[i].ID == row.ID {
			rows[i] = row
			return
		}
	}
	c.rows[itemID] = append(rows, row)
}

func (c *Cache) Remove(itemID, subitemID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows := c.rows[itemID]
	for i := range rows {
		if rows[i].ID == subitemID {
			c.rows[itemID] = append(rows[:i:i], rows[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Cache) Rename(itemID, subitemID, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.rows[itemID] {
		if c.rows[itemID][i].ID == subitemID {
			c.rows[itemID][i].Name = name
			return true
		}
	}
	return false
}

// Get returns a copy of the cached rows and whether an entry exists.
func (c *Cache) Get(itemID string) ([]model.SubItemRow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows, ok := c.rows[itemID]
	if !ok {
		return nil, false
	}
	out := make([]model.SubItemRow, len(rows))
	copy(out, rows)
	return out, true
}

func (c *Cache) IsExpanded(itemID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expanded[itemID]
}

func (c *Cache) IsLoading(itemID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading[itemID]
}

// Reset drops every entry. Fetches still in flight are discarded.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.rows = make(map[string][]model.SubItemRow)
	c.expanded = make(map[string]bool)
	c.loading = make(map[string]bool)
}
