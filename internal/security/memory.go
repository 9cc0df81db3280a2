package security

import (
	"context"

	"github.com/patrickmn/go-cache"

	"github.com/insightdelivered/statement-importer/internal/models"
)

// MemoryCatalog keeps securities in process memory. Entries never expire.
type MemoryCatalog struct {
	store *cache.Cache
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{store: cache.New(cache.NoExpiration, 0)}
}

func (c *MemoryCatalog) FindByISIN(_ context.Context, isin string) (models.Security, error) {
	v, ok := c.store.Get(isin)
	if !ok {
		return models.Security{}, ErrNotFound
	}
	return v.(models.Security), nil
}

// Insert relies on cache.Add, which only stores when the key is absent.
func (c *MemoryCatalog) Insert(ctx context.Context, s models.Security) (models.Security, bool, error) {
	if err := c.store.Add(s.ISIN, s, cache.NoExpiration); err == nil {
		return s, true, nil
	}
	stored, err := c.FindByISIN(ctx, s.ISIN)
	return stored, false, err
}

// Len returns the number of stored securities.
func (c *MemoryCatalog) Len() int {
	return c.store.ItemCount()
}
