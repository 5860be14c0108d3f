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

package coerce

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/relquery/gateway/internal/dbtype"
	"github.com/relquery/gateway/internal/errs"
)

// Coerce parses a single raw JSON scalar into a Value of the given
// canonical target type, using format as the date/time pattern override
// when target is temporal. Any parse failure is an *errs.Error of kind
// InvalidArgument naming the target type and the offending literal
// (spec §4.1 "Failure").
func Coerce(raw any, target dbtype.Canonical, format string) (Value, error) {
	if raw == nil {
		return Value{Type: target, Native: nil}, nil
	}

	switch target {
	case dbtype.Varchar, dbtype.Char:
		s, err := asString(raw)
		if err != nil {
			return Value{}, invalidLiteral(target, raw, err)
		}
		return Value{Type: target, Native: s}, nil

	case dbtype.Integer:
		n, err := parseInt(raw, 32)
		if err != nil {
			return Value{}, invalidLiteral(target, raw, err)
		}
		return Value{Type: target, Native: int32(n)}, nil

	case dbtype.BigInt:
		n, err := parseInt(raw, 64)
		if err != nil {
			return Value{}, invalidLiteral(target, raw, err)
		}
		return Value{Type: target, Native: n}, nil

	case dbtype.Decimal:
		d, err := parseDecimal(raw)
		if err != nil {
			return Value{}, invalidLiteral(target, raw, err)
		}
		return Value{Type: target, Native: d}, nil

	case dbtype.Boolean:
		b, err := parseBool(raw)
		if err != nil {
			return Value{}, invalidLiteral(target, raw, err)
		}
		return Value{Type: target, Native: b}, nil

	case dbtype.LocalDate:
		t, err := parseTemporal(raw, format, DefaultDateLayout)
		if err != nil {
			return Value{}, invalidLiteral(target, raw, err)
		}
		return Value{Type: target, Native: t}, nil

	case dbtype.LocalTime:
		t, err := parseTemporal(raw, format, DefaultTimeLayout)
		if err != nil {
			return Value{}, invalidLiteral(target, raw, err)
		}
		return Value{Type: target, Native: t}, nil

	case dbtype.LocalDateTime:
		t, err := parseTemporal(raw, format, DefaultDateTimeLayout)
		if err != nil {
			return Value{}, invalidLiteral(target, raw, err)
		}
		return Value{Type: target, Native: t}, nil

	case dbtype.UUID:
		s, err := asString(raw)
		if err != nil {
			return Value{}, invalidLiteral(target, raw, err)
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return Value{}, invalidLiteral(target, raw, err)
		}
		return Value{Type: target, Native: id}, nil

	case dbtype.JSON, dbtype.JSONB:
		// JSON/JSONB are bound as a raw string, not reparsed (spec §4.1).
		s, err := asString(raw)
		if err != nil {
			return Value{}, invalidLiteral(target, raw, err)
		}
		return Value{Type: target, Native: s}, nil

	default:
		return Value{}, errs.New(errs.InvalidArgument, "unknown cast_type target %q", target)
	}
}

// CoerceList coerces raw as a JSON array, element-wise. A non-array input
// is promoted to a 1-element list, matching IN/NOT_IN's single-value
// promotion rule (spec §3 invariants).
func CoerceList(raw any, target dbtype.Canonical, format string) ([]Value, error) {
	items, ok := raw.([]any)
	if !ok {
		v, err := Coerce(raw, target, format)
		if err != nil {
			return nil, err
		}
		return []Value{v}, nil
	}
	out := make([]Value, 0, len(items))
	for _, item := range items {
		v, err := Coerce(item, target, format)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func invalidLiteral(target dbtype.Canonical, raw any, cause error) error {
	return errs.Wrap(errs.InvalidArgument, cause, "cannot coerce %v to %s", raw, target)
}

func asString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("expected a string-compatible scalar, got %T", raw)
	}
}

func parseInt(raw any, bitSize int) (int64, error) {
	switch v := raw.(type) {
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, bitSize)
	default:
		return 0, fmt.Errorf("expected a numeric value, got %T", raw)
	}
}

func parseDecimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	default:
		return decimal.Decimal{}, fmt.Errorf("expected a numeric value, got %T", raw)
	}
}

func parseBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return false, fmt.Errorf("boolean literal must be \"true\" or \"false\", got %q", v)
		}
	default:
		return false, fmt.Errorf("expected a boolean, got %T", raw)
	}
}

func parseTemporal(raw any, format, defaultLayout string) (time.Time, error) {
	s, err := asString(raw)
	if err != nil {
		return time.Time{}, err
	}
	layout := defaultLayout
	if format != "" {
		layout = translatePattern(format)
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
