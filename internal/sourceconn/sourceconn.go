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

// Package sourceconn opens and describes the physical backend connection
// behind one DatabaseDescriptor: DSN synthesis, driver selection, and the
// live *sqlx.DB handle the registry pins a descriptor to (spec §4.4).
package sourceconn

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/relquery/gateway/internal/errs"
	"github.com/relquery/gateway/internal/request"
)

// Source is a live execution context bound to one descriptor: opaque
// over whatever driver connection state backs it (GLOSSARY "Context").
type Source struct {
	DB     *sqlx.DB
	DBType string // normalized: "POSTGRES" or "MYSQL"
}

// DSN synthesizes the backend connection string for a descriptor. The
// "jdbc-like://<driver> host:port/database" shape of spec §4.4 names the
// logical URL; the actual driver DSN syntax is what sqlx.Open needs.
func DSN(d request.DatabaseDescriptor) (driverName, dsn string, err error) {
	switch d.NormalizedDBType() {
	case "POSTGRES":
		dsn := fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=prefer",
			d.Username, d.Password, d.Host, d.Port, d.Database,
		)
		if d.Schema != "" {
			dsn += "&search_path=" + d.Schema
		}
		return "pgx", dsn, nil

	case "MYSQL":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true",
			d.Username, d.Password, d.Host, d.Port, d.Database,
		)
		return "mysql", dsn, nil

	default:
		return "", "", errs.New(errs.InvalidArgument, "unsupported db_type %q", d.DBType)
	}
}

// Open opens a fresh connection to the descriptor's backend and verifies
// it with a ping — used both for registry installs and for the
// "verify via a disposable connection" requirement on descriptor
// create/update (spec §4.4).
func Open(ctx context.Context, d request.DatabaseDescriptor) (*Source, error) {
	driverName, dsn, err := DSN(d)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.BackendError, err, "opening connection for descriptor %q", d.Name)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.BackendError, err, "connecting to descriptor %q", d.Name)
	}
	return &Source{DB: db, DBType: d.NormalizedDBType()}, nil
}

// Close releases the underlying connection pool. Safe to call on a
// Source with no backing DB, which test doubles may construct.
func (s *Source) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// PlaceholderFormat is the squirrel placeholder style to assemble
// statements with for this backend.
func (s *Source) PlaceholderFormat() sq.PlaceholderFormat {
	if s.DBType == "MYSQL" {
		return sq.Question
	}
	return sq.Dollar
}
