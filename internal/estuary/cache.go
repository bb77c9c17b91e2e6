// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package estuary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/autobrr/dealdash/internal/models"
)

const (
	CacheKindStatus = "status"
	CacheKindViewer = "viewer"
)

// CacheObserver receives hit/miss notifications
type CacheObserver interface {
	ObserveCacheLookup(kind string, hit bool)
}

// CachedClient keeps recent status and viewer responses so that page reloads and
// JSON polling do not hammer the backend. The content listing is never cached:
// every page load sees the current set of uploads.
type CachedClient struct {
	*Client
	cache    *ristretto.Cache
	ttl      time.Duration
	observer CacheObserver
}

func NewCachedClient(client *Client, ttl time.Duration, observer CacheObserver) (*CachedClient, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,     // 100k
		MaxCost:     1 << 26, // 64MB
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create backend cache: %w", err)
	}

	return &CachedClient{
		Client:   client,
		cache:    cache,
		ttl:      ttl,
		observer: observer,
	}, nil
}

// ContentStatus serves the status from cache when fresh, otherwise asks the backend.
// Failures are never cached.
func (c *CachedClient) ContentStatus(ctx context.Context, token string, id int64) (*models.ContentStatus, error) {
	cacheKey := fmt.Sprintf("status:%s:%d", tokenKey(token), id)
	if cached, found := c.cache.Get(cacheKey); found {
		if status, ok := cached.(*models.ContentStatus); ok {
			c.observe(CacheKindStatus, true)
			return status, nil
		}
	}
	c.observe(CacheKindStatus, false)

	status, err := c.Client.ContentStatus(ctx, token, id)
	if err != nil {
		return nil, err
	}

	c.set(cacheKey, status, int64(1+len(status.Deals)))

	return status, nil
}

// Viewer caches token → viewer lookups; the auth middleware calls this on every request
func (c *CachedClient) Viewer(ctx context.Context, token string) (*models.Viewer, error) {
	cacheKey := "viewer:" + tokenKey(token)
	if cached, found := c.cache.Get(cacheKey); found {
		if viewer, ok := cached.(*models.Viewer); ok {
			c.observe(CacheKindViewer, true)
			return viewer, nil
		}
	}
	c.observe(CacheKindViewer, false)

	viewer, err := c.Client.Viewer(ctx, token)
	if err != nil {
		return nil, err
	}

	c.set(cacheKey, viewer, 1)

	return viewer, nil
}

func (c *CachedClient) Close() {
	c.cache.Close()
}

func (c *CachedClient) set(key string, value any, cost int64) {
	if c.ttl <= 0 {
		return
	}
	c.cache.SetWithTTL(key, value, cost, c.ttl)
	// Make the entry visible to the next Get
	c.cache.Wait()
}

func (c *CachedClient) observe(kind string, hit bool) {
	if c.observer != nil {
		c.observer.ObserveCacheLookup(kind, hit)
	}
}

// tokenKey keeps raw tokens out of cache keys
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
