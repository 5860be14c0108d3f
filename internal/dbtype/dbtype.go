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

// Package dbtype holds the canonical SQL type vocabulary shared by the
// coercion, predicate, schema, and assembler components (spec §4.1 and
// GLOSSARY "Canonical SQL type").
package dbtype

import "strings"

// Canonical is one of the uniform target types used across the gateway,
// independent of which physical backend is in play.
type Canonical string

const (
	Varchar        Canonical = "VARCHAR"
	Char           Canonical = "CHAR"
	Integer        Canonical = "INTEGER"
	BigInt         Canonical = "BIGINT"
	Decimal        Canonical = "DECIMAL"
	Boolean        Canonical = "BOOLEAN"
	LocalDate      Canonical = "LOCALDATE"
	LocalTime      Canonical = "LOCALTIME"
	LocalDateTime  Canonical = "LOCALDATETIME"
	UUID           Canonical = "UUID"
	JSON           Canonical = "JSON"
	JSONB          Canonical = "JSONB"
	Unknown        Canonical = ""
)

// castTypeTable is the cast_type -> canonical SQL type mapping of spec
// §4.1. Keys are normalized to upper case before lookup.
var castTypeTable = map[string]Canonical{
	"STRING":    Varchar,
	"VARCHAR":   Varchar,
	"TEXT":      Varchar,
	"CHAR":      Char,
	"INTEGER":   Integer,
	"INT":       Integer,
	"BIGINT":    BigInt,
	"LONG":      BigInt,
	"DECIMAL":   Decimal,
	"NUMERIC":   Decimal,
	"DOUBLE":    Decimal,
	"BOOLEAN":   Boolean,
	"DATE":      LocalDate,
	"TIME":      LocalTime,
	"DATETIME":  LocalDateTime,
	"TIMESTAMP": LocalDateTime,
	"UUID":      UUID,
	"JSON":      JSON,
	"JSONB":     JSONB,
}

// FromCastType resolves a request's cast_type field to a canonical type.
// ok is false for any cast_type not in spec §4.1's table.
func FromCastType(castType string) (Canonical, bool) {
	c, ok := castTypeTable[strings.ToUpper(strings.TrimSpace(castType))]
	return c, ok
}

// FromBackendTypeName maps a backend's reported column type name (as
// found in information_schema.columns.data_type) to a canonical type.
// Unrecognized backend types fall back to Varchar so unknown columns are
// still usable for equality/like comparisons without a cast.
func FromBackendTypeName(backend string) Canonical {
	b := strings.ToLower(strings.TrimSpace(backend))
	switch {
	case strings.Contains(b, "bigint") || strings.Contains(b, "int8"):
		return BigInt
	case strings.Contains(b, "int") || strings.Contains(b, "serial"):
		return Integer
	case strings.Contains(b, "numeric") || strings.Contains(b, "decimal") || strings.Contains(b, "double") || strings.Contains(b, "float") || strings.Contains(b, "real"):
		return Decimal
	case strings.Contains(b, "bool"):
		return Boolean
	case b == "jsonb":
		return JSONB
	case strings.Contains(b, "json"):
		return JSON
	case strings.Contains(b, "uuid"):
		return UUID
	case strings.Contains(b, "timestamp") || strings.Contains(b, "datetime"):
		return LocalDateTime
	case b == "date":
		return LocalDate
	case strings.Contains(b, "time"):
		return LocalTime
	case strings.Contains(b, "char") || strings.Contains(b, "text"):
		return Varchar
	default:
		return Varchar
	}
}

// IsTemporal reports whether c is one of the date/time canonical types.
func IsTemporal(c Canonical) bool {
	switch c {
	case LocalDate, LocalTime, LocalDateTime:
		return true
	default:
		return false
	}
}
