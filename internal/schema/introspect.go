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

	"github.com/jmoiron/sqlx"

	"github.com/relquery/gateway/internal/dbtype"
	"github.com/relquery/gateway/internal/errs"
)

// postgresColumnsQuery and mysqlColumnsQuery locate a table
// case-insensitively and list its columns in ordinal order, mirroring the
// teacher's own INFORMATION_SCHEMA-driven tool queries
// (internal/tools/postgres/postgreslistschemas,
// internal/tools/mysql/mysqllisttables).
const postgresColumnsQuery = `
SELECT column_name, data_type
FROM information_schema.columns
WHERE lower(table_name) = lower($1)
ORDER BY ordinal_position
`

const mysqlColumnsQuery = `
SELECT column_name, data_type
FROM information_schema.columns
WHERE lower(table_name) = lower(?)
  AND table_schema = database()
ORDER BY ordinal_position
`

// SQLIntrospector introspects a table's columns over a live *sqlx.DB
// using the query appropriate for one backend kind.
type SQLIntrospector struct {
	DB    *sqlx.DB
	Query string
}

// NewPostgresIntrospector builds an Introspector for a Postgres pool.
func NewPostgresIntrospector(db *sqlx.DB) *SQLIntrospector {
	return &SQLIntrospector{DB: db, Query: postgresColumnsQuery}
}

// NewMySQLIntrospector builds an Introspector for a MySQL pool.
func NewMySQLIntrospector(db *sqlx.DB) *SQLIntrospector {
	return &SQLIntrospector{DB: db, Query: mysqlColumnsQuery}
}

func (s *SQLIntrospector) Introspect(ctx context.Context, table string) (*Map, error) {
	rows, err := s.DB.QueryxContext(ctx, s.Query, table)
	if err != nil {
		return nil, errs.Wrap(errs.BackendError, err, "querying metadata for table %q", table)
	}
	defer rows.Close()

	var columns []ColumnHandle
	for rows.Next() {
		var name, sqlType string
		if err := rows.Scan(&name, &sqlType); err != nil {
			return nil, errs.Wrap(errs.BackendError, err, "reading metadata for table %q", table)
		}
		columns = append(columns, ColumnHandle{
			Name:      name,
			SQLType:   sqlType,
			Canonical: dbtype.FromBackendTypeName(sqlType),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.BackendError, err, "reading metadata for table %q", table)
	}
	if len(columns) == 0 {
		return nil, errs.New(errs.NotFound, "table %q not found", table)
	}
	return NewMap(table, columns), nil
}
