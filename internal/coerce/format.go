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

import "strings"

// DefaultDateLayout, DefaultTimeLayout and DefaultDateTimeLayout are the
// Go reference-time translations of spec §4.1's default patterns
// (yyyy-MM-dd, HH:mm:ss, yyyy-MM-dd'T'HH:mm:ss).
const (
	DefaultDateLayout     = "2006-01-02"
	DefaultTimeLayout     = "15:04:05"
	DefaultDateTimeLayout = "2006-01-02T15:04:05"
)

// translatePattern converts a Java-style date/time pattern (the
// cast_format accepted by spec §3/§4.1) into a Go reference-time layout.
// Only the token vocabulary spec.md's own defaults use is supported;
// anything else passes through unchanged, which lets a caller supply a
// Go layout directly if they already know one.
func translatePattern(pattern string) string {
	replacer := strings.NewReplacer(
		"yyyy", "2006",
		"MM", "01",
		"dd", "02",
		"HH", "15",
		"mm", "04",
		"ss", "05",
		"'T'", "T",
	)
	return replacer.Replace(pattern)
}
