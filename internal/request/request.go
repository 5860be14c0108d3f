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

// Package request holds the wire data model spec §3 describes:
// QueryRequest, Search, JoinRequest, and DatabaseDescriptor.
package request

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/relquery/gateway/internal/dbtype"
	"github.com/relquery/gateway/internal/errs"
)

// FilterOperator is one of the comparison operators a Search may use.
type FilterOperator string

const (
	Equals             FilterOperator = "EQUALS"
	NotEquals          FilterOperator = "NOT_EQUALS"
	GreaterThan        FilterOperator = "GREATER_THAN"
	GreaterThanOrEqual FilterOperator = "GREATER_THAN_EQUAL"
	LessThan           FilterOperator = "LESS_THAN"
	LessThanOrEqual    FilterOperator = "LESS_THAN_EQUAL"
	Like               FilterOperator = "LIKE"
	In                 FilterOperator = "IN"
	NotIn              FilterOperator = "NOT_IN"
	Between            FilterOperator = "BETWEEN"
)

// LogicalOperator combines one filter with the next in a filter list.
type LogicalOperator string

const (
	And LogicalOperator = "AND"
	Or  LogicalOperator = "OR"
)

// JoinType is one of the supported SQL join kinds.
type JoinType string

const (
	InnerJoin JoinType = "INNER"
	LeftJoin  JoinType = "LEFT"
	RightJoin JoinType = "RIGHT"
)

// OrderDirection is the sort direction for order_by.
type OrderDirection string

const (
	Asc  OrderDirection = "ASC"
	Desc OrderDirection = "DESC"
)

// Search is one filter predicate (spec §3).
type Search struct {
	Column          string          `json:"column" validate:"required"`
	Value           any             `json:"value"`
	FilterOperator  FilterOperator  `json:"filterOperator" validate:"required"`
	LogicalOperator LogicalOperator `json:"logicalOperator"`
	CastType        string          `json:"castType,omitempty"`
	CastFormat      string          `json:"castFormat,omitempty"`
}

// EffectiveLogicalOperator returns AND when LogicalOperator is unset, per
// spec §3's stated default.
func (s Search) EffectiveLogicalOperator() LogicalOperator {
	if s.LogicalOperator == "" {
		return And
	}
	return s.LogicalOperator
}

// QualifierAndColumn splits "column" or "qualifier.column" into its
// parts. Qualifier is empty when the column is unqualified.
func (s Search) QualifierAndColumn() (qualifier, column string) {
	return splitQualified(s.Column)
}

func splitQualified(path string) (qualifier, column string) {
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		return path[:idx], path[idx+1:]
	}
	return "", path
}

// JoinRequest describes one join against the base table (spec §3).
type JoinRequest struct {
	JoinType JoinType `json:"joinType" validate:"required"`
	Table    string   `json:"table" validate:"required"`
	Alias    string   `json:"alias,omitempty"`
	OnLeft   []string `json:"onLeft" validate:"required,min=1"`
	OnRight  []string `json:"onRight" validate:"required,min=1"`
}

// EffectiveAlias is the alias used to qualify this join's columns.
func (j JoinRequest) EffectiveAlias() string {
	if j.Alias != "" {
		return j.Alias
	}
	return j.Table
}

// QueryRequest is the single request shape driving all four gateway
// operations (spec §3).
type QueryRequest struct {
	ConfigID       string            `json:"configId,omitempty"`
	DirectConfig   *DatabaseDescriptor `json:"directConfig,omitempty"`
	Table          string            `json:"table" validate:"required"`
	Alias          string            `json:"alias,omitempty"`
	SelectFields   []string          `json:"selectFields,omitempty"`
	Filters        []Search          `json:"filters,omitempty"`
	Joins          []JoinRequest     `json:"joins,omitempty"`
	Limit          int               `json:"limit,omitempty"`
	Offset         int               `json:"offset,omitempty"`
	OrderBy        string            `json:"orderBy,omitempty"`
	OrderDirection OrderDirection    `json:"orderDirection,omitempty"`
	Distinct       bool              `json:"distinct,omitempty"`
	Pretty         bool              `json:"pretty,omitempty"`
}

// EffectiveAlias is the alias used to qualify the base table's columns.
func (q QueryRequest) EffectiveAlias() string {
	if q.Alias != "" {
		return q.Alias
	}
	return q.Table
}

// EffectiveOrderDirection defaults to ASC per spec §3.
func (q QueryRequest) EffectiveOrderDirection() OrderDirection {
	if q.OrderDirection == "" {
		return Asc
	}
	return q.OrderDirection
}

var validate = validator.New()

// Validate checks the structural invariants spec §3 states are required
// on every QueryRequest, independent of schema/column resolution (which
// the pipeline performs once a backend and schema are available).
func (q QueryRequest) Validate() error {
	if err := validate.Struct(q); err != nil {
		return errs.Wrap(errs.InvalidArgument, err, "invalid query request")
	}
	if q.ConfigID == "" && q.DirectConfig == nil {
		return errs.New(errs.InvalidArgument, "one of config_id or direct_config is required")
	}
	for i, s := range q.Filters {
		if err := validateSearch(s); err != nil {
			return errs.Wrap(errs.InvalidArgument, err, "filters[%d]", i)
		}
	}
	for i, j := range q.Joins {
		if err := validateJoin(j); err != nil {
			return errs.Wrap(errs.InvalidArgument, err, "joins[%d]", i)
		}
	}
	return nil
}

func validateSearch(s Search) error {
	switch s.FilterOperator {
	case Equals, NotEquals, GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual, Like, In, NotIn, Between:
	default:
		return errs.New(errs.InvalidArgument, "unsupported filter_operator %q", s.FilterOperator)
	}
	if s.FilterOperator == Between {
		arr, ok := s.Value.([]any)
		if !ok || len(arr) != 2 {
			return errs.New(errs.InvalidArgument, "BETWEEN requires a 2-element array value")
		}
	}
	if s.FilterOperator == Like {
		if _, ok := s.Value.(string); !ok {
			return errs.New(errs.InvalidArgument, "LIKE requires a string value")
		}
	}
	if s.CastType != "" {
		if _, ok := dbtype.FromCastType(s.CastType); !ok {
			return errs.New(errs.InvalidArgument, "unknown cast_type %q", s.CastType)
		}
	}
	return nil
}

func validateJoin(j JoinRequest) error {
	switch j.JoinType {
	case InnerJoin, LeftJoin, RightJoin:
	default:
		return errs.New(errs.InvalidArgument, "unsupported join_type %q", j.JoinType)
	}
	if len(j.OnLeft) != len(j.OnRight) || len(j.OnLeft) == 0 {
		return errs.New(errs.InvalidArgument, "on_left and on_right must have equal, non-zero length")
	}
	for _, p := range append(append([]string{}, j.OnLeft...), j.OnRight...) {
		if q, c := splitQualified(p); q == "" || c == "" {
			return errs.New(errs.InvalidArgument, "join path %q must be qualifier.column", p)
		}
	}
	return nil
}

// DatabaseDescriptor is the set of fields needed to open a SQL connection
// (spec §3, GLOSSARY "Descriptor").
type DatabaseDescriptor struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name" validate:"required"`
	DBType   string `json:"dbType" validate:"required"`
	Host     string `json:"host" validate:"required"`
	Port     string `json:"port" validate:"required"`
	Database string `json:"database" validate:"required"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Schema   string `json:"schema,omitempty"`
}

// NormalizedDBType upper-cases DBType for the case-insensitive comparison
// spec §3 requires.
func (d DatabaseDescriptor) NormalizedDBType() string {
	return strings.ToUpper(strings.TrimSpace(d.DBType))
}

// Validate applies the "required fields may not be blank" invariant.
func (d DatabaseDescriptor) Validate() error {
	if err := validate.Struct(d); err != nil {
		return errs.Wrap(errs.InvalidArgument, err, "invalid database descriptor")
	}
	switch d.NormalizedDBType() {
	case "POSTGRES", "MYSQL":
	default:
		return errs.New(errs.InvalidArgument, "unsupported db_type %q", d.DBType)
	}
	return nil
}

// DirectKey is the deterministic cache key for a DirectConfig that has no
// stored id (GLOSSARY "Direct key").
func (d DatabaseDescriptor) DirectKey() string {
	return strings.Join([]string{
		d.NormalizedDBType(), d.Host, d.Port, d.Database, d.Username, d.Password, d.Schema,
	}, "::")
}
