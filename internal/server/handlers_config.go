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

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relquery/gateway/internal/registry"
	"github.com/relquery/gateway/internal/request"
)

// listConfigs serves GET /api/configs (spec §6).
func (h *handlers) listConfigs(w http.ResponseWriter, r *http.Request) {
	all, err := h.configs.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redactAll(all))
}

// getConfig serves GET /api/configs/{id} (spec §6).
func (h *handlers) getConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.configs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redact(d))
}

// createConfig serves POST /api/configs (spec §6). The registry is
// refreshed with a verified connection before the descriptor is
// persisted (spec §4.4 "Mutation hooks").
func (h *handlers) createConfig(w http.ResponseWriter, r *http.Request) {
	var d request.DatabaseDescriptor
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, err)
		return
	}
	if err := d.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}

	if err := h.pipeline.Registry.Install(r.Context(), d); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.configs.Insert(r.Context(), d)
	if err != nil {
		h.pipeline.Registry.Evict(d)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, redact(created))
}

// updateConfig serves PUT /api/configs/{id} (spec §6).
func (h *handlers) updateConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var d request.DatabaseDescriptor
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, err)
		return
	}
	d.ID = id
	if err := d.Validate(); err != nil {
		writeError(w, err)
		return
	}

	if err := h.pipeline.Registry.Install(r.Context(), d); err != nil {
		writeError(w, err)
		return
	}
	h.pipeline.Schemas.Invalidate(registry.Key(d))

	updated, err := h.configs.Update(r.Context(), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redact(updated))
}

// deleteConfig serves DELETE /api/configs/{id} (spec §6).
func (h *handlers) deleteConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.configs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.configs.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	h.pipeline.Registry.Evict(d)
	h.pipeline.Schemas.Invalidate(registry.Key(d))
	w.WriteHeader(http.StatusNoContent)
}

// redact strips the password before a descriptor goes out over the
// wire; callers still pass the unredacted value to the registry/store.
func redact(d request.DatabaseDescriptor) request.DatabaseDescriptor {
	d.Password = ""
	return d
}

func redactAll(all []request.DatabaseDescriptor) []request.DatabaseDescriptor {
	out := make([]request.DatabaseDescriptor, len(all))
	for i, d := range all {
		out[i] = redact(d)
	}
	return out
}
