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

package configstore

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/relquery/gateway/internal/errs"
	"github.com/relquery/gateway/internal/request"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS descriptors (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL UNIQUE,
	db_type  TEXT NOT NULL,
	host     TEXT NOT NULL,
	port     TEXT NOT NULL,
	database TEXT NOT NULL,
	username TEXT NOT NULL,
	password TEXT NOT NULL,
	schema   TEXT NOT NULL DEFAULT ''
)`

// SQLiteStore is the default Store implementation: one local sqlite
// file holding every DatabaseDescriptor (spec §6 "Persisted state").
// Writes are serialized per descriptor id so a create/update/delete
// triplet for the same id never interleaves (spec §5).
type SQLiteStore struct {
	db *sql.DB

	writeMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Open creates or attaches to a sqlite database file at path and
// ensures the descriptors table exists.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, err, "opening config store %q", path)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.InternalError, err, "initializing config store schema")
	}
	return &SQLiteStore{db: db, locks: make(map[string]*sync.Mutex)}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) lockFor(id string) *sync.Mutex {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

// GetByID returns errs.NotFound when no descriptor has id.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (request.DatabaseDescriptor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, db_type, host, port, database, username, password, schema FROM descriptors WHERE id = ?`, id)
	return scanDescriptor(row)
}

// ListAll returns every stored descriptor, in no particular order.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]request.DatabaseDescriptor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, db_type, host, port, database, username, password, schema FROM descriptors`)
	if err != nil {
		return nil, errs.Wrap(errs.BackendError, err, "listing descriptors")
	}
	defer rows.Close()

	var out []request.DatabaseDescriptor
	for rows.Next() {
		d, err := scanDescriptorRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListDescriptors adapts ListAll to internal/registry.DescriptorLister.
func (s *SQLiteStore) ListDescriptors(ctx context.Context) ([]request.DatabaseDescriptor, error) {
	return s.ListAll(ctx)
}

// Insert assigns d a new id and persists it. A name collision with any
// other descriptor is a ConflictError (spec §7).
func (s *SQLiteStore) Insert(ctx context.Context, d request.DatabaseDescriptor) (request.DatabaseDescriptor, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	mu := s.lockFor(d.ID)
	mu.Lock()
	defer mu.Unlock()

	if taken, err := s.nameTakenByOther(ctx, d.Name, d.ID); err != nil {
		return request.DatabaseDescriptor{}, err
	} else if taken {
		return request.DatabaseDescriptor{}, errs.New(errs.ConflictError, "descriptor name %q already exists", d.Name)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO descriptors (id, name, db_type, host, port, database, username, password, schema)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.NormalizedDBType(), d.Host, d.Port, d.Database, d.Username, d.Password, d.Schema,
	)
	if err != nil {
		return request.DatabaseDescriptor{}, errs.Wrap(errs.BackendError, err, "inserting descriptor %q", d.Name)
	}
	return d, nil
}

// Update overwrites the descriptor stored under d.ID. NotFound if it
// does not exist; ConflictError if d.Name collides with a different id.
func (s *SQLiteStore) Update(ctx context.Context, d request.DatabaseDescriptor) (request.DatabaseDescriptor, error) {
	mu := s.lockFor(d.ID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.GetByID(ctx, d.ID); err != nil {
		return request.DatabaseDescriptor{}, err
	}
	if taken, err := s.nameTakenByOther(ctx, d.Name, d.ID); err != nil {
		return request.DatabaseDescriptor{}, err
	} else if taken {
		return request.DatabaseDescriptor{}, errs.New(errs.ConflictError, "descriptor name %q already exists", d.Name)
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE descriptors
		SET name = ?, db_type = ?, host = ?, port = ?, database = ?, username = ?, password = ?, schema = ?
		WHERE id = ?`,
		d.Name, d.NormalizedDBType(), d.Host, d.Port, d.Database, d.Username, d.Password, d.Schema, d.ID,
	)
	if err != nil {
		return request.DatabaseDescriptor{}, errs.Wrap(errs.BackendError, err, "updating descriptor %q", d.ID)
	}
	return d, nil
}

// Delete removes the descriptor stored under id. A missing id is not an
// error: deleting the same id twice succeeds both times.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM descriptors WHERE id = ?`, id); err != nil {
		return errs.Wrap(errs.BackendError, err, "deleting descriptor %q", id)
	}
	return nil
}

func (s *SQLiteStore) nameTakenByOther(ctx context.Context, name, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM descriptors WHERE name = ? AND id != ?`, name, id).Scan(&count)
	if err != nil {
		return false, errs.Wrap(errs.BackendError, err, "checking descriptor name uniqueness")
	}
	return count > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDescriptor(row *sql.Row) (request.DatabaseDescriptor, error) {
	d, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return request.DatabaseDescriptor{}, errs.New(errs.NotFound, "descriptor not found")
	}
	if err != nil {
		return request.DatabaseDescriptor{}, errs.Wrap(errs.BackendError, err, "reading descriptor")
	}
	return d, nil
}

func scanDescriptorRows(rows *sql.Rows) (request.DatabaseDescriptor, error) {
	d, err := scanInto(rows)
	if err != nil {
		return request.DatabaseDescriptor{}, errs.Wrap(errs.BackendError, err, "reading descriptor")
	}
	return d, nil
}

func scanInto(s scanner) (request.DatabaseDescriptor, error) {
	var d request.DatabaseDescriptor
	err := s.Scan(&d.ID, &d.Name, &d.DBType, &d.Host, &d.Port, &d.Database, &d.Username, &d.Password, &d.Schema)
	return d, err
}
