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

package schema_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/relquery/gateway/internal/schema"
)

func newMockIntrospector(t *testing.T) (*schema.SQLIntrospector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return schema.NewPostgresIntrospector(sqlxDB), mock
}

func TestCacheMissLoadsAndCachesSchema(t *testing.T) {
	introspector, mock := newMockIntrospector(t)
	rows := sqlmock.NewRows([]string{"column_name", "data_type"}).
		AddRow("id", "integer").
		AddRow("name", "character varying")
	mock.ExpectQuery("information_schema.columns").WillReturnRows(rows)

	c := schema.NewCache(0, 0, nil)
	m, err := c.Get(context.Background(), schema.Key("cfg1", "users"), "users", introspector)
	require.NoError(t, err)
	require.Equal(t, 2, len(m.Columns))

	// second Get must not issue another query
	m2, err := c.Get(context.Background(), schema.Key("cfg1", "users"), "users", introspector)
	require.NoError(t, err)
	require.Same(t, m, m2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheConcurrentFirstTouchSharesOneIntrospection(t *testing.T) {
	introspector, mock := newMockIntrospector(t)
	rows := sqlmock.NewRows([]string{"column_name", "data_type"}).AddRow("id", "integer")
	mock.ExpectQuery("information_schema.columns").WillReturnRows(rows)

	c := schema.NewCache(0, 0, nil)
	key := schema.Key("cfg1", "users")

	var wg sync.WaitGroup
	results := make([]*schema.Map, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := c.Get(context.Background(), key, "users", introspector)
			require.NoError(t, err)
			results[i] = m
		}(i)
	}
	wg.Wait()

	for _, m := range results {
		require.Same(t, results[0], m)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheInvalidateEvictsByDescriptorPrefix(t *testing.T) {
	introspector, mock := newMockIntrospector(t)
	rows := sqlmock.NewRows([]string{"column_name", "data_type"}).AddRow("id", "integer")
	mock.ExpectQuery("information_schema.columns").WillReturnRows(rows)

	c := schema.NewCache(0, 0, nil)
	_, err := c.Get(context.Background(), schema.Key("cfg1", "users"), "users", introspector)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	c.Invalidate("cfg1")
	require.Equal(t, 0, c.Len())
}

type blockingIntrospector struct {
	release chan struct{}
	err     error
}

func (b *blockingIntrospector) Introspect(ctx context.Context, table string) (*schema.Map, error) {
	<-b.release
	return nil, b.err
}

func TestCacheWaiterGetsErrorWhenLeaderIntrospectionFails(t *testing.T) {
	introspector := &blockingIntrospector{release: make(chan struct{}), err: errors.New("backend unreachable")}
	c := schema.NewCache(0, 0, nil)
	key := schema.Key("cfg1", "users")

	leaderStarted := make(chan struct{})
	leaderDone := make(chan error, 1)
	go func() {
		close(leaderStarted)
		_, err := c.Get(context.Background(), key, "users", introspector)
		leaderDone <- err
	}()
	<-leaderStarted
	time.Sleep(10 * time.Millisecond) // let the leader register itself as pending

	waiterDone := make(chan error, 1)
	go func() {
		_, err := c.Get(context.Background(), key, "users", introspector)
		waiterDone <- err
	}()
	time.Sleep(10 * time.Millisecond) // let the waiter block on the leader's WaitGroup

	close(introspector.release)

	require.Error(t, <-leaderDone)
	require.Error(t, <-waiterDone)
	require.Equal(t, 0, c.Len())
}

func TestCacheTTLExpires(t *testing.T) {
	introspector, mock := newMockIntrospector(t)
	rows1 := sqlmock.NewRows([]string{"column_name", "data_type"}).AddRow("id", "integer")
	rows2 := sqlmock.NewRows([]string{"column_name", "data_type"}).AddRow("id", "integer")
	mock.ExpectQuery("information_schema.columns").WillReturnRows(rows1)
	mock.ExpectQuery("information_schema.columns").WillReturnRows(rows2)

	c := schema.NewCache(10, 10*time.Millisecond, nil)
	key := schema.Key("cfg1", "users")
	_, err := c.Get(context.Background(), key, "users", introspector)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, err = c.Get(context.Background(), key, "users", introspector)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
