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

// Package rowshape implements component F: turning one backend result
// row into the JSON object the gateway streams as NDJSON (spec §4.6).
package rowshape

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/relquery/gateway/internal/dbtype"
)

// ColumnRef names the qualifier (table or alias) and base column name a
// result column was projected from. A nil/empty Qualifier means the
// column cannot be attributed to a single table — the case for
// "SELECT *" over a join, where the driver reports only the bare column
// name. Built by internal/assembler alongside the statement it assembles.
type ColumnRef struct {
	Qualifier string
	Name      string
}

// Column is one scanned result column: its ref, the backend's SQL type
// name (used to decide whether to reparse JSON), and its scanned Go
// value.
type Column struct {
	Ref     ColumnRef
	SQLType string
	Value   any
}

// KV is one key/value pair of a shaped row, in result order.
type KV struct {
	Key   string
	Value any
}

// Row is an ordered JSON object: fields are emitted in the same order
// rowshape.Shape encountered them, mirroring "walk fields in result
// order" (spec §4.6).
type Row []KV

// MarshalJSON renders Row as a JSON object preserving field order,
// since encoding/json would otherwise sort a map's keys alphabetically.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Shape builds the key-disambiguated Row for one result row (spec §4.6):
// the first occurrence of a base column name uses that name as its key;
// any later occurrence is prefixed "<qualifier>_<base>". A later
// occurrence whose Ref has an empty Qualifier keeps the bare name, so
// the row then holds that key twice. JSON/JSONB
// values are reparsed into their tree form when possible; temporal
// values are rendered as ISO-8601 strings.
func Shape(columns []Column) Row {
	seen := make(map[string]bool, len(columns))
	row := make(Row, 0, len(columns))
	for _, c := range columns {
		key := c.Ref.Name
		if seen[key] {
			if c.Ref.Qualifier != "" {
				key = c.Ref.Qualifier + "_" + c.Ref.Name
			}
		}
		seen[c.Ref.Name] = true
		row = append(row, KV{Key: key, Value: shapeValue(c)})
	}
	return row
}

func shapeValue(c Column) any {
	if c.Value == nil {
		return nil
	}
	switch v := c.Value.(type) {
	case time.Time:
		return formatTemporal(v, c.SQLType)
	case []byte:
		if isJSONType(c.SQLType) {
			var tree any
			if err := json.Unmarshal(v, &tree); err == nil {
				return tree
			}
			return string(v)
		}
		return string(v)
	case string:
		if isJSONType(c.SQLType) {
			var tree any
			if err := json.Unmarshal([]byte(v), &tree); err == nil {
				return tree
			}
			return v
		}
		return v
	default:
		return v
	}
}

func isJSONType(sqlType string) bool {
	t := strings.ToLower(sqlType)
	return strings.Contains(t, "json")
}

func formatTemporal(t time.Time, sqlType string) string {
	switch dbtype.FromBackendTypeName(sqlType) {
	case dbtype.LocalDate:
		return t.Format("2006-01-02")
	case dbtype.LocalTime:
		return t.Format("15:04:05")
	default:
		return t.Format("2006-01-02T15:04:05")
	}
}
