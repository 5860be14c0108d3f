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

package registry_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relquery/gateway/internal/registry"
	"github.com/relquery/gateway/internal/request"
	"github.com/relquery/gateway/internal/sourceconn"
)

type fakeLister struct {
	descriptors []request.DatabaseDescriptor
	err         error
}

func (f fakeLister) ListDescriptors(ctx context.Context) ([]request.DatabaseDescriptor, error) {
	return f.descriptors, f.err
}

func countingOpener(calls *int32) registry.Opener {
	return func(ctx context.Context, d request.DatabaseDescriptor) (*sourceconn.Source, error) {
		atomic.AddInt32(calls, 1)
		return &sourceconn.Source{DBType: d.NormalizedDBType()}, nil
	}
}

func TestGetOpensOnceAndCaches(t *testing.T) {
	var calls int32
	r := registry.New(nil, countingOpener(&calls))
	d := request.DatabaseDescriptor{ID: "cfg1", DBType: "POSTGRES"}

	_, err := r.Get(context.Background(), d)
	require.NoError(t, err)
	_, err = r.Get(context.Background(), d)
	require.NoError(t, err)

	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGetConcurrentFirstTouchOpensOnce(t *testing.T) {
	var calls int32
	r := registry.New(nil, countingOpener(&calls))
	d := request.DatabaseDescriptor{ID: "cfg1", DBType: "MYSQL"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Get(context.Background(), d)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestInstallReplacesExistingEntry(t *testing.T) {
	var calls int32
	r := registry.New(nil, countingOpener(&calls))
	d := request.DatabaseDescriptor{ID: "cfg1", DBType: "POSTGRES"}

	require.NoError(t, r.Install(context.Background(), d))
	require.NoError(t, r.Install(context.Background(), d))
	require.Equal(t, 1, r.Len())
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestEvictRemovesEntry(t *testing.T) {
	var calls int32
	r := registry.New(nil, countingOpener(&calls))
	d := request.DatabaseDescriptor{ID: "cfg1", DBType: "POSTGRES"}

	require.NoError(t, r.Install(context.Background(), d))
	require.Equal(t, 1, r.Len())
	r.Evict(d)
	require.Equal(t, 0, r.Len())
}

func TestPreloadInstallsEveryDescriptorDespiteFailures(t *testing.T) {
	calls := int32(0)
	open := func(ctx context.Context, d request.DatabaseDescriptor) (*sourceconn.Source, error) {
		atomic.AddInt32(&calls, 1)
		if d.ID == "bad" {
			return nil, assertErr
		}
		return &sourceconn.Source{DBType: d.NormalizedDBType()}, nil
	}
	r := registry.New(nil, open)
	lister := fakeLister{descriptors: []request.DatabaseDescriptor{
		{ID: "good1", DBType: "POSTGRES"},
		{ID: "bad", DBType: "POSTGRES"},
		{ID: "good2", DBType: "MYSQL"},
	}}

	r.Preload(context.Background(), lister)

	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
	require.Equal(t, 2, r.Len())
}

var assertErr = fakeOpenError("boom")

type fakeOpenError string

func (e fakeOpenError) Error() string { return string(e) }

func TestDirectKeyUsedWhenNoID(t *testing.T) {
	var calls int32
	r := registry.New(nil, countingOpener(&calls))
	d := request.DatabaseDescriptor{
		DBType: "POSTGRES", Host: "h", Port: "5432", Database: "db",
		Username: "u", Password: "p",
	}
	_, err := r.Get(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, registry.Key(d), d.DirectKey())
}
