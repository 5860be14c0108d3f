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

// Package assembler implements component E: turning a resolved
// QueryRequest into a parameterized SQL statement over Masterminds/squirrel
// (spec §4.5).
package assembler

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/relquery/gateway/internal/dbtype"
	"github.com/relquery/gateway/internal/errs"
	"github.com/relquery/gateway/internal/predicate"
	"github.com/relquery/gateway/internal/request"
	"github.com/relquery/gateway/internal/rowshape"
	"github.com/relquery/gateway/internal/schema"
)

// baseTerm renders the "<table> AS <alias>" / "<table>" FROM term of
// spec §4.5's "Base table term" rule.
func baseTerm(q request.QueryRequest) string {
	if q.Alias != "" {
		return q.Table + " AS " + q.Alias
	}
	return q.Table
}

// resolveField turns a Search/order_by column path into a fully
// qualified SQL field reference and the canonical type to coerce its
// value as. Unqualified paths resolve against the base table's schema
// (spec §4.7 step 2); qualified paths reference a joined table, whose
// schema the pipeline does not introspect, so values bind as VARCHAR
// unless the request supplies an explicit cast_type.
func resolveField(q request.QueryRequest, baseSchema *schema.Map, path string) (field string, canonical dbtype.Canonical, err error) {
	qualifier, column := splitQualified(path)
	if qualifier == "" {
		col, ok := baseSchema.Lookup(column)
		if !ok {
			return "", dbtype.Unknown, errs.New(errs.InvalidArgument, "unknown column %q", column)
		}
		return q.EffectiveAlias() + "." + col.Name, col.Canonical, nil
	}
	if !ValidQualifiers(q)[qualifier] {
		return "", dbtype.Unknown, errs.New(errs.InvalidArgument, "unknown qualifier %q", qualifier)
	}
	return qualifier + "." + column, dbtype.Varchar, nil
}

func splitQualified(path string) (qualifier, column string) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[:i], path[i+1:]
		}
	}
	return "", path
}

// SplitQualified splits a "qualifier.column" path; an unqualified path
// returns an empty qualifier.
func SplitQualified(path string) (qualifier, column string) {
	return splitQualified(path)
}

// ValidQualifiers returns the set of qualifiers legal anywhere in q: the
// base table's effective alias and every join's effective alias (spec
// §3 "a Search over qualifier.col is legal only if qualifier equals the
// base alias/table or appears as an alias/table in joins").
func ValidQualifiers(q request.QueryRequest) map[string]bool {
	set := map[string]bool{q.EffectiveAlias(): true}
	for _, j := range q.Joins {
		set[j.EffectiveAlias()] = true
	}
	return set
}

// buildWhere resolves and combines every filter in the request into one
// optional Sqlizer, validating each column against baseSchema for
// unqualified references.
func buildWhere(q request.QueryRequest, baseSchema *schema.Map) (sq.Sqlizer, error) {
	if len(q.Filters) == 0 {
		return nil, nil
	}
	fragments := make([]predicate.Fragment, 0, len(q.Filters))
	for _, s := range q.Filters {
		field, canonical, err := resolveField(q, baseSchema, s.Column)
		if err != nil {
			return nil, err
		}
		frag, err := predicate.Build(s, field, canonical)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, predicate.Fragment{Sql: frag, Operator: s.EffectiveLogicalOperator()})
	}
	return predicate.Combine(fragments), nil
}

// buildJoins folds every JoinRequest onto builder in request order,
// validating each on_left/on_right path is exactly "qualifier.column"
// (spec §4.5 "FROM / JOIN").
func buildJoins(builder sq.SelectBuilder, joins []request.JoinRequest) (sq.SelectBuilder, error) {
	for _, j := range joins {
		table := j.Table
		if j.Alias != "" {
			table += " AS " + j.Alias
		}
		cond, err := joinCondition(j)
		if err != nil {
			return builder, err
		}
		switch j.JoinType {
		case request.InnerJoin:
			builder = builder.Join(table + " ON " + cond)
		case request.LeftJoin:
			builder = builder.LeftJoin(table + " ON " + cond)
		case request.RightJoin:
			if len(joins) > 1 {
				return builder, errs.New(errs.InvalidArgument, "RIGHT join is not supported alongside other joins")
			}
			builder = builder.RightJoin(table + " ON " + cond)
		default:
			return builder, errs.New(errs.InvalidArgument, "unsupported join_type %q", j.JoinType)
		}
	}
	return builder, nil
}

func joinCondition(j request.JoinRequest) (string, error) {
	conds := make([]string, 0, len(j.OnLeft))
	for i := range j.OnLeft {
		lq, lc := splitQualified(j.OnLeft[i])
		rq, rc := splitQualified(j.OnRight[i])
		if lq == "" || lc == "" || rq == "" || rc == "" {
			return "", errs.New(errs.InvalidArgument, "join path must be qualifier.column")
		}
		conds = append(conds, lq+"."+lc+" = "+rq+"."+rc)
	}
	return joinAnd(conds), nil
}

func joinAnd(conds []string) string {
	out := conds[0]
	for _, c := range conds[1:] {
		out += " AND " + c
	}
	return out
}

// projection builds the SELECT column list per spec §4.5 "Projection".
func projection(q request.QueryRequest) ([]string, error) {
	if len(q.SelectFields) == 0 {
		return []string{"*"}, nil
	}
	qualifiers := ValidQualifiers(q)
	cols := make([]string, len(q.SelectFields))
	for i, f := range q.SelectFields {
		qualifier, column := splitQualified(f)
		if qualifier == "" {
			cols[i] = q.EffectiveAlias() + "." + column
			continue
		}
		if !qualifiers[qualifier] {
			return nil, errs.New(errs.InvalidArgument, "unknown qualifier %q", qualifier)
		}
		cols[i] = qualifier + "." + column
	}
	return cols, nil
}

// ProjectedColumns reports the qualifier/column each entry of an
// explicit select_fields list resolves to, in order, for the row shaper
// to key scanned values by (spec §4.6). Returns nil for "SELECT *"
// since no per-column qualifier is known ahead of execution — the row
// shaper then falls back to the backend-reported column names alone.
func ProjectedColumns(q request.QueryRequest) []rowshape.ColumnRef {
	if len(q.SelectFields) == 0 {
		return nil
	}
	refs := make([]rowshape.ColumnRef, len(q.SelectFields))
	for i, f := range q.SelectFields {
		qualifier, column := splitQualified(f)
		if qualifier == "" {
			qualifier = q.EffectiveAlias()
		}
		refs[i] = rowshape.ColumnRef{Qualifier: qualifier, Name: column}
	}
	return refs
}

// BuildSelect assembles the data-streaming statement (spec §4.5/§6
// POST /api/query/data).
func BuildSelect(q request.QueryRequest, baseSchema *schema.Map, placeholder sq.PlaceholderFormat) (string, []any, error) {
	cols, err := projection(q)
	if err != nil {
		return "", nil, err
	}
	builder := sq.StatementBuilder.PlaceholderFormat(placeholder).
		Select(cols...).
		From(baseTerm(q))
	if q.Distinct {
		builder = builder.Distinct()
	}

	builder, err = buildJoins(builder, q.Joins)
	if err != nil {
		return "", nil, err
	}

	where, err := buildWhere(q, baseSchema)
	if err != nil {
		return "", nil, err
	}
	if where != nil {
		builder = builder.Where(where)
	}

	if q.OrderBy != "" {
		field, _, err := resolveField(q, baseSchema, q.OrderBy)
		if err != nil {
			return "", nil, err
		}
		builder = builder.OrderBy(field + " " + string(q.EffectiveOrderDirection()))
	}

	if q.Limit > 0 {
		builder = builder.Limit(uint64(q.Limit))
		if q.Offset > 0 {
			builder = builder.Offset(uint64(q.Offset))
		}
	}

	return builder.ToSql()
}

// BuildCount assembles the row-counting variant: replace the projection
// with COUNT(*) and drop ORDER/LIMIT/OFFSET (spec §4.5 "Variants").
func BuildCount(q request.QueryRequest, baseSchema *schema.Map, placeholder sq.PlaceholderFormat) (string, []any, error) {
	builder := sq.StatementBuilder.PlaceholderFormat(placeholder).
		Select("COUNT(*)").
		From(baseTerm(q))

	builder, err := buildJoins(builder, q.Joins)
	if err != nil {
		return "", nil, err
	}

	where, err := buildWhere(q, baseSchema)
	if err != nil {
		return "", nil, err
	}
	if where != nil {
		builder = builder.Where(where)
	}

	return builder.ToSql()
}

// BuildDelete assembles the filtered-deletion variant. An empty
// predicate is rejected outright; joins, order, and pagination are
// dropped even when present on the request (spec §4.5 "Variants").
func BuildDelete(q request.QueryRequest, baseSchema *schema.Map, placeholder sq.PlaceholderFormat) (string, []any, error) {
	where, err := buildWhere(q, baseSchema)
	if err != nil {
		return "", nil, err
	}
	if where == nil {
		return "", nil, errs.New(errs.InvalidArgument, "delete requires at least one filter")
	}

	builder := sq.StatementBuilder.PlaceholderFormat(placeholder).
		Delete(q.Table).
		Where(where)
	return builder.ToSql()
}
