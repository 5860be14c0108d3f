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

package pipeline_test

import (
	"bytes"
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/relquery/gateway/internal/errs"
	"github.com/relquery/gateway/internal/pipeline"
	"github.com/relquery/gateway/internal/registry"
	"github.com/relquery/gateway/internal/request"
	"github.com/relquery/gateway/internal/schema"
	"github.com/relquery/gateway/internal/sourceconn"
)

type fakeStore struct {
	byID map[string]request.DatabaseDescriptor
}

func (f fakeStore) GetByID(ctx context.Context, id string) (request.DatabaseDescriptor, error) {
	d, ok := f.byID[id]
	if !ok {
		return request.DatabaseDescriptor{}, errs.New(errs.NotFound, "descriptor %q not found", id)
	}
	return d, nil
}

func (f fakeStore) ListAll(ctx context.Context) ([]request.DatabaseDescriptor, error) {
	out := make([]request.DatabaseDescriptor, 0, len(f.byID))
	for _, d := range f.byID {
		out = append(out, d)
	}
	return out, nil
}

func (f fakeStore) Insert(ctx context.Context, d request.DatabaseDescriptor) (request.DatabaseDescriptor, error) {
	f.byID[d.ID] = d
	return d, nil
}

func (f fakeStore) Update(ctx context.Context, d request.DatabaseDescriptor) (request.DatabaseDescriptor, error) {
	f.byID[d.ID] = d
	return d, nil
}

func (f fakeStore) Delete(ctx context.Context, id string) error {
	delete(f.byID, id)
	return nil
}

func newTestPipeline(t *testing.T) (*pipeline.Pipeline, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	open := func(ctx context.Context, d request.DatabaseDescriptor) (*sourceconn.Source, error) {
		return &sourceconn.Source{DB: sqlxDB, DBType: d.NormalizedDBType()}, nil
	}
	reg := registry.New(nil, open)
	schemas := schema.NewCache(0, 0, nil)
	store := fakeStore{byID: map[string]request.DatabaseDescriptor{
		"cfg1": {ID: "cfg1", Name: "primary", DBType: "POSTGRES", Host: "h", Port: "5432", Database: "d", Username: "u", Password: "p"},
	}}
	return pipeline.New(reg, schemas, store, nil), mock
}

func expectUsersSchema(mock sqlmock.Sqlmock) {
	rows := sqlmock.NewRows([]string{"column_name", "data_type"}).
		AddRow("id", "integer").
		AddRow("name", "character varying")
	mock.ExpectQuery("information_schema.columns").WillReturnRows(rows)
}

func TestPipelineDataStreamsNDJSON(t *testing.T) {
	p, mock := newTestPipeline(t)
	expectUsersSchema(mock)
	rows := sqlmock.NewRows([]string{"id", "name"}).
		AddRow(int64(1), "alice").
		AddRow(int64(2), "bob")
	mock.ExpectQuery("SELECT (.+) FROM users").WillReturnRows(rows)

	q := request.QueryRequest{ConfigID: "cfg1", Table: "users"}
	var buf bytes.Buffer
	err := p.Data(context.Background(), q, &buf)
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	require.Len(t, lines, 2)
	require.JSONEq(t, `{"id":1,"name":"alice"}`, string(lines[0]))
	require.JSONEq(t, `{"id":2,"name":"bob"}`, string(lines[1]))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPipelineDataRejectsUnknownFilterColumn(t *testing.T) {
	p, mock := newTestPipeline(t)
	expectUsersSchema(mock)

	q := request.QueryRequest{
		ConfigID: "cfg1", Table: "users",
		Filters: []request.Search{{Column: "bogus", Value: 1.0, FilterOperator: request.Equals}},
	}
	var buf bytes.Buffer
	err := p.Data(context.Background(), q, &buf)
	require.Equal(t, errs.InvalidArgument, errs.KindOf(err))
}

func TestPipelineDataRejectsUnknownFilterQualifier(t *testing.T) {
	p, mock := newTestPipeline(t)
	expectUsersSchema(mock)

	q := request.QueryRequest{
		ConfigID: "cfg1", Table: "users",
		Filters: []request.Search{{Column: "o.total", Value: 1.0, FilterOperator: request.Equals}},
	}
	var buf bytes.Buffer
	err := p.Data(context.Background(), q, &buf)
	require.Equal(t, errs.InvalidArgument, errs.KindOf(err))
}

func TestPipelineCount(t *testing.T) {
	p, mock := newTestPipeline(t)
	expectUsersSchema(mock)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	q := request.QueryRequest{ConfigID: "cfg1", Table: "users"}
	count, err := p.Count(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, int64(42), count)
}

func TestPipelineDeleteReturnsNotFoundOnZeroRows(t *testing.T) {
	p, mock := newTestPipeline(t)
	expectUsersSchema(mock)
	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 0))

	q := request.QueryRequest{
		ConfigID: "cfg1", Table: "users",
		Filters: []request.Search{{Column: "id", Value: 1.0, FilterOperator: request.Equals}},
	}
	_, err := p.Delete(context.Background(), q)
	require.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestPipelineDeleteReturnsAffectedCount(t *testing.T) {
	p, mock := newTestPipeline(t)
	expectUsersSchema(mock)
	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 3))

	q := request.QueryRequest{
		ConfigID: "cfg1", Table: "users",
		Filters: []request.Search{{Column: "id", Value: 1.0, FilterOperator: request.Equals}},
	}
	n, err := p.Delete(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestPipelineSchemaReturnsColumnTypeMap(t *testing.T) {
	p, mock := newTestPipeline(t)
	expectUsersSchema(mock)

	q := request.QueryRequest{ConfigID: "cfg1", Table: "users"}
	out, err := p.Schema(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"id": "integer", "name": "character varying"}, out)
}

func TestPipelineDirectConfigBypassesConfigStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	open := func(ctx context.Context, d request.DatabaseDescriptor) (*sourceconn.Source, error) {
		return &sourceconn.Source{DB: sqlxDB, DBType: d.NormalizedDBType()}, nil
	}
	reg := registry.New(nil, open)
	schemas := schema.NewCache(0, 0, nil)
	p := pipeline.New(reg, schemas, fakeStore{byID: map[string]request.DatabaseDescriptor{}}, nil)

	expectUsersSchema(mock)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))

	q := request.QueryRequest{
		Table: "users",
		DirectConfig: &request.DatabaseDescriptor{
			Name: "direct", DBType: "POSTGRES", Host: "h", Port: "5432", Database: "d", Username: "u", Password: "p",
		},
	}
	count, err := p.Count(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
