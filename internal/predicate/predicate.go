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

// Package predicate implements component B: turning one resolved Search
// into a parameterized SQL fragment, and folding a Search list into a
// single WHERE condition (spec §4.2).
package predicate

import (
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/relquery/gateway/internal/coerce"
	"github.com/relquery/gateway/internal/dbtype"
	"github.com/relquery/gateway/internal/errs"
	"github.com/relquery/gateway/internal/request"
)

// castSQL names the SQL cast target for each canonical type. Temporal
// casts map LOCALDATE to DATE, LOCALTIME to TIME and LOCALDATETIME to
// TIMESTAMP.
var castSQL = map[dbtype.Canonical]string{
	dbtype.Varchar:       "VARCHAR",
	dbtype.Char:          "CHAR",
	dbtype.Integer:       "INTEGER",
	dbtype.BigInt:        "BIGINT",
	dbtype.Decimal:       "DECIMAL",
	dbtype.Boolean:       "BOOLEAN",
	dbtype.LocalDate:     "DATE",
	dbtype.LocalTime:     "TIME",
	dbtype.LocalDateTime: "TIMESTAMP",
	dbtype.UUID:          "UUID",
	dbtype.JSON:          "JSON",
	dbtype.JSONB:         "JSONB",
}

// Build resolves one Search into a squirrel.Sqlizer, given the fully
// qualified SQL field expression it targets (e.g. "u.id") and the
// column's canonical type inferred from the schema cache when the
// request carries no explicit cast_type.
func Build(s request.Search, field string, inferredType dbtype.Canonical) (sq.Sqlizer, error) {
	target := inferredType
	if s.CastType != "" {
		t, ok := dbtype.FromCastType(s.CastType)
		if !ok {
			return nil, errs.New(errs.InvalidArgument, "unknown cast_type %q", s.CastType)
		}
		target = t
		field = castField(field, target)
	}

	switch s.FilterOperator {
	case request.Equals, request.NotEquals:
		return buildEquality(s, field, target)

	case request.GreaterThan, request.GreaterThanOrEqual, request.LessThan, request.LessThanOrEqual:
		return buildComparison(s, field, target)

	case request.Like:
		v, err := coerce.Coerce(s.Value, dbtype.Varchar, s.CastFormat)
		if err != nil {
			return nil, err
		}
		lit, _ := v.Native.(string)
		return sq.Expr(field+" LIKE '%' || ? || '%'", lit), nil

	case request.In, request.NotIn:
		vals, err := coerce.CoerceList(s.Value, target, s.CastFormat)
		if err != nil {
			return nil, err
		}
		natives := nativesOf(vals)
		if s.FilterOperator == request.In {
			return sq.Eq{field: natives}, nil
		}
		return sq.NotEq{field: natives}, nil

	case request.Between:
		arr, ok := s.Value.([]any)
		if !ok || len(arr) != 2 {
			return nil, errs.New(errs.InvalidArgument, "BETWEEN requires a 2-element array value")
		}
		lo, err := coerce.Coerce(arr[0], target, s.CastFormat)
		if err != nil {
			return nil, err
		}
		hi, err := coerce.Coerce(arr[1], target, s.CastFormat)
		if err != nil {
			return nil, err
		}
		return sq.Expr(field+" BETWEEN ? AND ?", truncated(lo), truncated(hi)), nil

	default:
		return nil, errs.New(errs.InvalidArgument, "unsupported filter_operator %q", s.FilterOperator)
	}
}

// buildEquality applies the NULL -> IS NULL/IS NOT NULL rewrite and the
// mandatory LOCALDATETIME one-second range policy (spec §4.2, Open
// Question (c)).
func buildEquality(s request.Search, field string, target dbtype.Canonical) (sq.Sqlizer, error) {
	if s.Value == nil {
		if s.FilterOperator == request.Equals {
			return sq.Expr(field + " IS NULL"), nil
		}
		return sq.Expr(field + " IS NOT NULL"), nil
	}

	v, err := coerce.Coerce(s.Value, target, s.CastFormat)
	if err != nil {
		return nil, err
	}
	if t, ok := v.DateTime(); ok && target == dbtype.LocalDateTime {
		lo := t.Truncate(time.Second)
		hi := lo.Add(time.Second)
		if s.FilterOperator == request.Equals {
			return sq.Expr(field+" BETWEEN ? AND ?", lo, hi), nil
		}
		return sq.Expr(field+" NOT BETWEEN ? AND ?", lo, hi), nil
	}
	if s.FilterOperator == request.Equals {
		return sq.Eq{field: v.Native}, nil
	}
	return sq.NotEq{field: v.Native}, nil
}

// buildComparison truncates LOCALDATETIME operands to whole seconds
// before binding, per spec §4.2.
func buildComparison(s request.Search, field string, target dbtype.Canonical) (sq.Sqlizer, error) {
	v, err := coerce.Coerce(s.Value, target, s.CastFormat)
	if err != nil {
		return nil, err
	}
	op := comparisonSQL[s.FilterOperator]
	return sq.Expr(field+" "+op+" ?", truncated(v)), nil
}

var comparisonSQL = map[request.FilterOperator]string{
	request.GreaterThan:        ">",
	request.GreaterThanOrEqual: ">=",
	request.LessThan:           "<",
	request.LessThanOrEqual:    "<=",
}

func castField(field string, target dbtype.Canonical) string {
	name, ok := castSQL[target]
	if !ok {
		return field
	}
	return "CAST(" + field + " AS " + name + ")"
}

func truncated(v coerce.Value) any {
	if t, ok := v.DateTime(); ok {
		return t.Truncate(time.Second)
	}
	return v.Native
}

func nativesOf(vals []coerce.Value) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = truncated(v)
	}
	return out
}
