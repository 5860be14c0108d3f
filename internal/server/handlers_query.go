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

package server

import (
	"net/http"

	"github.com/relquery/gateway/internal/request"
)

func (h *handlers) decodeQuery(w http.ResponseWriter, r *http.Request) (request.QueryRequest, bool) {
	var q request.QueryRequest
	if err := decodeJSON(r, &q); err != nil {
		writeError(w, err)
		return request.QueryRequest{}, false
	}
	if err := q.Validate(); err != nil {
		writeError(w, err)
		return request.QueryRequest{}, false
	}
	return q, true
}

// startTrackingWriter wraps an http.ResponseWriter so a handler can tell,
// after a failed pipeline call, whether any bytes (and therefore status
// 200) were already sent — streaming errors that occur before the first
// row still get a proper 4xx/5xx response (spec §7 "Propagation").
type startTrackingWriter struct {
	http.ResponseWriter
	started bool
}

func (s *startTrackingWriter) Write(b []byte) (int, error) {
	s.started = true
	return s.ResponseWriter.Write(b)
}

func (s *startTrackingWriter) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// queryData serves POST /api/query/data: streams NDJSON, one object per
// row (spec §6).
func (h *handlers) queryData(w http.ResponseWriter, r *http.Request) {
	q, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	tracked := &startTrackingWriter{ResponseWriter: w}
	err := h.pipeline.Data(r.Context(), q, tracked)
	if err == nil {
		return
	}
	if !tracked.started {
		writeError(w, err)
		return
	}
	if h.logger != nil {
		h.logger.ErrorContext(r.Context(), "streaming query failed mid-response", "error", err)
	}
}

// queryCount serves POST /api/query/count (spec §6).
func (h *handlers) queryCount(w http.ResponseWriter, r *http.Request) {
	q, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}
	count, err := h.pipeline.Count(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"value": count})
}

// queryDelete serves POST /api/query/delete (spec §6).
func (h *handlers) queryDelete(w http.ResponseWriter, r *http.Request) {
	q, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}
	count, err := h.pipeline.Delete(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"value": count})
}

// querySchema serves POST /api/query/schema (spec §6).
func (h *handlers) querySchema(w http.ResponseWriter, r *http.Request) {
	q, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}
	out, err := h.pipeline.Schema(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
