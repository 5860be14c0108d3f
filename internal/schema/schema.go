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

// Package schema implements component C: discovering and caching the
// physical schema (column -> SQL type) for each (connection, table) pair
// (spec §4.3).
package schema

import (
	"strings"

	"github.com/relquery/gateway/internal/dbtype"
)

// ColumnHandle is one resolved column: its declared name, the backend's
// own SQL type name, and the canonical type used for coercion.
type ColumnHandle struct {
	Name      string
	SQLType   string // e.g. "character varying", "int4", as reported by the backend
	Canonical dbtype.Canonical
}

// Map is the ordered, case-insensitive column_name -> ColumnHandle
// mapping cached per (descriptor, table) (GLOSSARY "Schema map").
type Map struct {
	Table   string
	Columns []ColumnHandle
	byLower map[string]ColumnHandle
}

// NewMap builds a Map from an ordered column list, installing the
// case-insensitive lookup index.
func NewMap(table string, columns []ColumnHandle) *Map {
	byLower := make(map[string]ColumnHandle, len(columns))
	for _, c := range columns {
		byLower[strings.ToLower(c.Name)] = c
	}
	return &Map{Table: table, Columns: columns, byLower: byLower}
}

// Lookup resolves a column name case-insensitively.
func (m *Map) Lookup(name string) (ColumnHandle, bool) {
	c, ok := m.byLower[strings.ToLower(name)]
	return c, ok
}
