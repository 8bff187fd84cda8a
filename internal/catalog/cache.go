package catalog

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/services"
	"github.com/desertthunder/simsa/internal/shared"
)

type snapshot struct {
	entries []models.CatalogEntry
	version uint64
}

// Cache stores the most recently fetched catalog.
type Cache struct {
	fetcher services.CatalogFetcher
	logger  *log.Logger
	current atomic.Pointer[snapshot]
}

// NewCache creates an empty cache backed by fetcher. logger may be nil.
func NewCache(fetcher services.CatalogFetcher, logger *log.Logger) *Cache {
	c := &Cache{fetcher: fetcher, logger: logger}
	c.current.Store(&snapshot{})
	return c
}

// Fetch retrieves the catalog and replaces the cached entries.
//
// On failure the previous snapshot is left untouched and the error (wrapping
// [shared.ErrNetwork] or [shared.ErrParse]) is returned unchanged.
func (c *Cache) Fetch(ctx context.Context) ([]models.CatalogEntry, error) {
	if c.fetcher == nil {
		return nil, fmt.Errorf("%w: no catalog source configured", shared.ErrServiceUnavailable)
	}

	entries, err := c.fetcher.FetchCatalog(ctx)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("catalog fetch failed", "error", err)
		}
		return nil, err
	}

	c.Replace(entries)
	if c.logger != nil {
		c.logger.Debug("catalog fetched", "entries", len(entries), "version", c.Version())
	}
	return c.Entries(), nil
}

// Replace swaps in entries as the new snapshot and bumps the version.
func (c *Cache) Replace(entries []models.CatalogEntry) {
	next := &snapshot{entries: slices.Clone(entries)}
	if next.entries == nil {
		next.entries = []models.CatalogEntry{}
	}
	for {
		prev := c.current.Load()
		next.version = prev.version + 1
		if c.current.CompareAndSwap(prev, next) {
			return
		}
	}
}

// Entries returns a copy of the current snapshot in catalog order.
func (c *Cache) Entries() []models.CatalogEntry {
	return slices.Clone(c.current.Load().entries)
}

func (c *Cache) Len() int { return len(c.current.Load().entries) }

// Version is incremented on every successful replace. Zero means never loaded.
func (c *Cache) Version() uint64 { return c.current.Load().version }

func (c *Cache) Loaded() bool { return c.Version() > 0 }
