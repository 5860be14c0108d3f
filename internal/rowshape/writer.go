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

package rowshape

import (
	"encoding/json"
	"io"
)

// NDJSONWriter emits one JSON object per line, optionally pretty-printed
// (spec §4.6 "Rows are emitted one per line"). It holds no buffer of its
// own: WriteRow writes straight to the wrapped writer, and Flush pushes
// the written rows on to the client when that writer can flush, so a
// slow client applies back-pressure on row production (spec §5
// "Suspension points").
type NDJSONWriter struct {
	w      io.Writer
	pretty bool
}

// NewNDJSONWriter wraps w; when pretty is true each row is indented.
func NewNDJSONWriter(w io.Writer, pretty bool) *NDJSONWriter {
	return &NDJSONWriter{w: w, pretty: pretty}
}

// WriteRow serializes row as one line of NDJSON.
func (n *NDJSONWriter) WriteRow(row Row) error {
	var (
		b   []byte
		err error
	)
	if n.pretty {
		b, err = json.MarshalIndent(row, "", "  ")
	} else {
		b, err = json.Marshal(row)
	}
	if err != nil {
		return err
	}
	if _, err := n.w.Write(b); err != nil {
		return err
	}
	_, err = n.w.Write([]byte{'\n'})
	return err
}

// flushableWriter lets callers that know their io.Writer also
// implements http.Flusher push each row to the client immediately.
type flushableWriter interface {
	Flush()
}

// Flush forwards to the underlying writer's Flush method, if it has one.
func (n *NDJSONWriter) Flush() {
	if f, ok := n.w.(flushableWriter); ok {
		f.Flush()
	}
}
