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

package rowshape_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relquery/gateway/internal/rowshape"
)

func TestShapeFirstOccurrenceUsesBareKey(t *testing.T) {
	cols := []rowshape.Column{
		{Ref: rowshape.ColumnRef{Qualifier: "u", Name: "id"}, SQLType: "integer", Value: int64(1)},
		{Ref: rowshape.ColumnRef{Qualifier: "u", Name: "name"}, SQLType: "varchar", Value: "bob"},
	}
	row := rowshape.Shape(cols)
	require.Equal(t, "id", row[0].Key)
	require.Equal(t, "name", row[1].Key)
}

func TestShapeDisambiguatesRepeatedColumnName(t *testing.T) {
	cols := []rowshape.Column{
		{Ref: rowshape.ColumnRef{Qualifier: "u", Name: "id"}, SQLType: "integer", Value: int64(1)},
		{Ref: rowshape.ColumnRef{Qualifier: "o", Name: "id"}, SQLType: "integer", Value: int64(2)},
	}
	row := rowshape.Shape(cols)
	require.Equal(t, "id", row[0].Key)
	require.Equal(t, "o_id", row[1].Key)
}

func TestShapeReparsesJSONColumn(t *testing.T) {
	cols := []rowshape.Column{
		{Ref: rowshape.ColumnRef{Qualifier: "t", Name: "payload"}, SQLType: "jsonb", Value: []byte(`{"a":1}`)},
	}
	row := rowshape.Shape(cols)
	m, ok := row[0].Value.(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(1), m["a"])
}

func TestShapeKeepsRawStringOnJSONParseFailure(t *testing.T) {
	cols := []rowshape.Column{
		{Ref: rowshape.ColumnRef{Qualifier: "t", Name: "payload"}, SQLType: "json", Value: []byte(`not json`)},
	}
	row := rowshape.Shape(cols)
	require.Equal(t, "not json", row[0].Value)
}

func TestShapeFormatsTemporalAsISOString(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cols := []rowshape.Column{
		{Ref: rowshape.ColumnRef{Qualifier: "t", Name: "created_at"}, SQLType: "timestamp", Value: ts},
	}
	row := rowshape.Shape(cols)
	require.Equal(t, "2026-01-02T03:04:05", row[0].Value)
}

func TestNDJSONWriterEmitsOneLinePerRow(t *testing.T) {
	var buf bytes.Buffer
	w := rowshape.NewNDJSONWriter(&buf, false)
	require.NoError(t, w.WriteRow(rowshape.Row{{Key: "id", Value: 1.0}}))
	require.NoError(t, w.WriteRow(rowshape.Row{{Key: "id", Value: 2.0}}))
	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	require.Len(t, lines, 2)
	require.JSONEq(t, `{"id":1}`, string(lines[0]))
	require.JSONEq(t, `{"id":2}`, string(lines[1]))
}
