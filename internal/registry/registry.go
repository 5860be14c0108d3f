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

// Package registry implements component D: the process-wide cache of
// live backend connections keyed by descriptor, with startup preload and
// mutation hooks that track the config store (spec §4.4).
package registry

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/relquery/gateway/internal/errs"
	"github.com/relquery/gateway/internal/log"
	"github.com/relquery/gateway/internal/request"
	"github.com/relquery/gateway/internal/sourceconn"
)

const (
	DefaultCapacity = 50
	DefaultIdleTTL  = 15 * time.Minute
)

// Opener abstracts sourceconn.Open so tests can swap in a fake backend.
type Opener func(ctx context.Context, d request.DatabaseDescriptor) (*sourceconn.Source, error)

// DescriptorLister reads every stored descriptor for the startup preload
// pass; implemented by internal/configstore.
type DescriptorLister interface {
	ListDescriptors(ctx context.Context) ([]request.DatabaseDescriptor, error)
}

// Registry is the Connection/Context Registry: one live Source per
// descriptor key, expiring 15 minutes after it was added (spec §4.4).
// The TTL counts from Add, not from last use: a Get does not extend it.
type Registry struct {
	lru    *lru.LRU[string, *sourceconn.Source]
	open   Opener
	logger log.Logger

	mu      sync.Mutex
	pending map[string]*sync.WaitGroup
}

// New builds a Registry. open defaults to sourceconn.Open when nil.
func New(logger log.Logger, open Opener) *Registry {
	if open == nil {
		open = sourceconn.Open
	}
	return &Registry{
		lru:     lru.NewLRU[string, *sourceconn.Source](DefaultCapacity, onEvict, DefaultIdleTTL),
		open:    open,
		logger:  logger,
		pending: make(map[string]*sync.WaitGroup),
	}
}

func onEvict(key string, src *sourceconn.Source) {
	if src != nil {
		_ = src.Close()
	}
}

// Key is the registry cache key for a descriptor: its stored id, or a
// deterministic direct key when it has none (spec §4.4, GLOSSARY "Direct
// key").
func Key(d request.DatabaseDescriptor) string {
	if d.ID != "" {
		return d.ID
	}
	return d.DirectKey()
}

// Get returns the live Source for a descriptor, opening and installing
// one on first use. Concurrent first-touches for the same key share one
// connection attempt (spec §5 compute-if-absent atomicity).
func (r *Registry) Get(ctx context.Context, d request.DatabaseDescriptor) (*sourceconn.Source, error) {
	key := Key(d)
	if s, ok := r.lru.Get(key); ok {
		return s, nil
	}

	r.mu.Lock()
	if s, ok := r.lru.Get(key); ok {
		r.mu.Unlock()
		return s, nil
	}
	if wg, inflight := r.pending[key]; inflight {
		r.mu.Unlock()
		wg.Wait()
		if s, ok := r.lru.Get(key); ok {
			return s, nil
		}
		return nil, errs.New(errs.BackendError, "connection for %q could not be established", key)
	}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	r.pending[key] = wg
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, key)
		r.mu.Unlock()
		wg.Done()
	}()

	s, err := r.open(ctx, d)
	if err != nil {
		return nil, err
	}
	r.lru.Add(key, s)
	return s, nil
}

// Install eagerly opens and caches a Source for d, replacing any
// existing entry under the same key (insert_descriptor/update_descriptor
// hook, spec §4.4).
func (r *Registry) Install(ctx context.Context, d request.DatabaseDescriptor) error {
	s, err := r.open(ctx, d)
	if err != nil {
		return err
	}
	key := Key(d)
	if old, ok := r.lru.Peek(key); ok && old != nil {
		_ = old.Close()
	}
	r.lru.Add(key, s)
	return nil
}

// Evict drops and closes the Source for d (delete_descriptor hook).
func (r *Registry) Evict(d request.DatabaseDescriptor) {
	key := Key(d)
	if old, ok := r.lru.Peek(key); ok && old != nil {
		_ = old.Close()
	}
	r.lru.Remove(key)
}

// Preload installs one context per stored descriptor at startup.
// Individual failures are logged, not fatal (spec §4.4 "Startup
// preload").
func (r *Registry) Preload(ctx context.Context, lister DescriptorLister) {
	descriptors, err := lister.ListDescriptors(ctx)
	if err != nil {
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "listing descriptors for registry preload", "error", err)
		}
		return
	}
	for _, d := range descriptors {
		if err := r.Install(ctx, d); err != nil {
			if r.logger != nil {
				r.logger.ErrorContext(ctx, "preloading connection", "descriptor", d.Name, "error", err)
			}
		}
	}
}

// Len reports the number of cached connections, for tests/metrics.
func (r *Registry) Len() int {
	return r.lru.Len()
}
