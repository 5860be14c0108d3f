// Copyright 2026 The Relquery Gateway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package schema

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/relquery/gateway/internal/errs"
	"github.com/relquery/gateway/internal/log"
)

// Introspector looks up the schema for table against a single physical
// backend. SQLIntrospector (introspect.go) is the implementation used
// for Postgres and MySQL sources.
type Introspector interface {
	Introspect(ctx context.Context, table string) (*Map, error)
}

// Cache is the process-wide, size- and age-evicted Schema Cache of
// component C: keyed "<descriptor_key>:<table>", capacity 1000, write-age
// TTL 10 minutes (spec §4.3, §3 Lifecycle).
type Cache struct {
	lru    *lru.LRU[string, *Map]
	logger log.Logger

	mu      sync.Mutex
	pending map[string]*sync.WaitGroup
}

const (
	DefaultCapacity = 1000
	DefaultTTL      = 10 * time.Minute
)

// NewCache builds a Cache with the given capacity/TTL; zero values fall
// back to the spec's defaults.
func NewCache(capacity int, ttl time.Duration, logger log.Logger) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		lru:     lru.NewLRU[string, *Map](capacity, nil, ttl),
		logger:  logger,
		pending: make(map[string]*sync.WaitGroup),
	}
}

// Key builds the cache key for a (descriptor, table) pair (spec §4.3).
func Key(descriptorKey, table string) string {
	return fmt.Sprintf("%s:%s", descriptorKey, table)
}

// Get returns the cached Map for key, loading it via introspector on a
// miss. Concurrent first-touches for the same key block on one another
// and share the single introspection result (spec §5 "compute-if-absent
// atomicity").
func (c *Cache) Get(ctx context.Context, key, table string, introspector Introspector) (*Map, error) {
	if m, ok := c.lru.Get(key); ok {
		return m, nil
	}

	c.mu.Lock()
	if m, ok := c.lru.Get(key); ok {
		c.mu.Unlock()
		return m, nil
	}
	if wg, inflight := c.pending[key]; inflight {
		c.mu.Unlock()
		wg.Wait()
		if m, ok := c.lru.Get(key); ok {
			return m, nil
		}
		return nil, errs.New(errs.BackendError, "schema for %q could not be introspected", key)
	}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	c.pending[key] = wg
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, key)
		c.mu.Unlock()
		wg.Done()
	}()

	if c.logger != nil {
		c.logger.DebugContext(ctx, "schema cache miss", "key", key)
	}
	m, err := introspector.Introspect(ctx, table)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, m)
	return m, nil
}

// Invalidate evicts every cached entry whose key starts with
// "<descriptorKey>:" — used when a descriptor's connection is refreshed
// or removed so stale schema never outlives its backend.
func (c *Cache) Invalidate(descriptorKey string) {
	prefix := descriptorKey + ":"
	for _, k := range c.lru.Keys() {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			c.lru.Remove(k)
		}
	}
}

// Len reports the number of cached schema entries, for tests/metrics.
func (c *Cache) Len() int {
	return c.lru.Len()
}
