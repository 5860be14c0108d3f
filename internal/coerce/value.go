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

// Package coerce implements component A of the gateway: parsing a raw
// JSON scalar/array into a typed SQL value under an explicit cast or an
// inferred column type (spec §4.1).
package coerce

import (
	"time"

	"github.com/relquery/gateway/internal/dbtype"
)

// Value is a single coerced, bindable literal. Native carries the Go
// value passed to the driver; Type is the canonical type it was coerced
// into, needed downstream for the datetime equality policy (spec §4.2).
type Value struct {
	Type   dbtype.Canonical
	Native any
}

// DateTime reports the underlying time.Time and true when Type is one of
// the temporal canonical types.
func (v Value) DateTime() (time.Time, bool) {
	if !dbtype.IsTemporal(v.Type) {
		return time.Time{}, false
	}
	t, ok := v.Native.(time.Time)
	return t, ok
}
