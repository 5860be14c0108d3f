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

package predicate

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/relquery/gateway/internal/request"
)

// Fragment pairs a built Sqlizer with the logical_operator joining it to
// whatever follows it in the filter list.
type Fragment struct {
	Sql      sq.Sqlizer
	Operator request.LogicalOperator
}

// Combine folds a list of Fragments left-associatively into a single
// Sqlizer: ((f1 ⊕1 f2) ⊕2 f3) … ⊕(n-1) fn, where ⊕k is fragments[k]'s
// own Operator. The last fragment's Operator is ignored, matching the
// combining rule of spec §4.2. An empty list yields a nil Sqlizer,
// meaning "no condition" — callers must omit the WHERE clause entirely.
func Combine(fragments []Fragment) sq.Sqlizer {
	if len(fragments) == 0 {
		return nil
	}
	acc := fragments[0].Sql
	for i := 1; i < len(fragments); i++ {
		op := fragments[i-1].Operator
		if op == "" {
			op = request.And
		}
		if op == request.Or {
			acc = sq.Or{acc, fragments[i].Sql}
		} else {
			acc = sq.And{acc, fragments[i].Sql}
		}
	}
	return acc
}
