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

// Package server wires the gateway's HTTP surface: the four query
// operations and descriptor CRUD (spec §6).
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"

	"github.com/relquery/gateway/internal/configstore"
	"github.com/relquery/gateway/internal/log"
	"github.com/relquery/gateway/internal/pipeline"
)

// Config holds the dependencies a Router needs to serve requests.
type Config struct {
	Pipeline *pipeline.Pipeline
	Configs  configstore.Store
	Logger   log.Logger
}

// NewRouter builds the chi.Router exposing every endpoint of spec §6,
// plus the supplemented health-check endpoint.
func NewRouter(cfg Config) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Recoverer)
	r.Use(httplog.RequestLogger(httplog.NewLogger("relquery-gateway", httplog.Options{
		JSON:     true,
		LogLevel: slog.LevelInfo,
		Concise:  true,
	})))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	h := &handlers{pipeline: cfg.Pipeline, configs: cfg.Configs, logger: cfg.Logger}

	r.Get("/healthz", h.healthz)

	r.Route("/api/query", func(r chi.Router) {
		r.Post("/data", h.queryData)
		r.Post("/count", h.queryCount)
		r.Post("/delete", h.queryDelete)
		r.Post("/schema", h.querySchema)
	})

	r.Route("/api/configs", func(r chi.Router) {
		r.Get("/", h.listConfigs)
		r.Post("/", h.createConfig)
		r.Get("/{id}", h.getConfig)
		r.Put("/{id}", h.updateConfig)
		r.Delete("/{id}", h.deleteConfig)
	})

	return r
}

type handlers struct {
	pipeline *pipeline.Pipeline
	configs  configstore.Store
	logger   log.Logger
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
