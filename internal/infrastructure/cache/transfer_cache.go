// Package cache provides the short-TTL read-through cache for transfer
// history, keyed by wallet address.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bimakw/usdc-dashboard/internal/domain/entities"
)

// ErrCacheMiss indicates the key was not found in cache.
var ErrCacheMiss = errors.New("cache miss")

// FetchFunc loads transfers for an address from the upstream data source.
type FetchFunc func(ctx context.Context, address string) ([]entities.Transfer, error)

type entry struct {
	data      []entities.Transfer
	fetchedAt time.Time
}

// TransferCache is an in-memory read-through cache of transfer lists.
// Entries older than the TTL are silently replaced on the next fetch,
// never served. Concurrent fetches for the same address are de-duplicated
// so callers share a single upstream call.
type TransferCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	group   singleflight.Group
	logger  *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewTransferCache creates a transfer cache with the given TTL.
func NewTransferCache(ttl time.Duration, logger *zap.Logger) *TransferCache {
	return &TransferCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the cached transfers for an address, or ErrCacheMiss if the
// entry is absent or stale.
func (c *TransferCache) Get(address string) ([]entities.Transfer, error) {
	address = strings.ToLower(address)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[address]
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return nil, ErrCacheMiss
	}
	return e.data, nil
}

// GetOrFetch returns the cached entry for an address while it is fresh;
// otherwise it invokes fetch, stores the result, and returns it. At most
// one fetch is in flight per address at a time.
func (c *TransferCache) GetOrFetch(ctx context.Context, address string, fetch FetchFunc) ([]entities.Transfer, error) {
	address = strings.ToLower(address)

	if data, err := c.Get(address); err == nil {
		c.logger.Debug("Cache hit", zap.String("address", address))
		return data, nil
	}

	v, err, shared := c.group.Do(address, func() (interface{}, error) {
		// A concurrent flight may have refreshed the entry already.
		if data, err := c.Get(address); err == nil {
			return data, nil
		}

		data, err := fetch(ctx, address)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[address] = entry{data: data, fetchedAt: c.now()}
		c.mu.Unlock()

		return data, nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Cache fill",
		zap.String("address", address),
		zap.Bool("shared", shared),
	)
	return v.([]entities.Transfer), nil
}

// Invalidate forces the next GetOrFetch for the address to bypass the
// cache. The in-flight de-duplication key is forgotten too, so a forced
// refresh cannot join a stale fetch.
func (c *TransferCache) Invalidate(address string) {
	address = strings.ToLower(address)

	c.mu.Lock()
	delete(c.entries, address)
	c.mu.Unlock()

	c.group.Forget(address)
}

// Len returns the number of cached entries, fresh or stale.
func (c *TransferCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
