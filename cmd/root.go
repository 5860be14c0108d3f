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

// Package cmd implements the relquery-gateway command-line entrypoint:
// flag parsing, logger construction, and the listen loop.
package cmd

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/relquery/gateway/internal/configstore"
	"github.com/relquery/gateway/internal/log"
	"github.com/relquery/gateway/internal/pipeline"
	"github.com/relquery/gateway/internal/registry"
	"github.com/relquery/gateway/internal/schema"
	"github.com/relquery/gateway/internal/server"
	"github.com/relquery/gateway/internal/sourceconn"
)

//go:embed version.txt
var versionFile string

// ServerConfig is the fully-resolved set of options a gateway process
// runs with, populated from flags (spec §6 "Process lifecycle").
type ServerConfig struct {
	Address           string
	Port              int
	LoggingFormat     string
	LogLevel          string
	ConfigStore       string
	SchemaCacheTTL    time.Duration
	ConnectionIdleTTL time.Duration
	Version           string
}

func withDefaults(c ServerConfig) ServerConfig {
	if c.Address == "" {
		c.Address = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 5000
	}
	if c.LoggingFormat == "" {
		c.LoggingFormat = "standard"
	}
	if c.LogLevel == "" {
		c.LogLevel = log.Info
	}
	if c.ConfigStore == "" {
		c.ConfigStore = "gateway.db"
	}
	if c.SchemaCacheTTL == 0 {
		c.SchemaCacheTTL = schema.DefaultTTL
	}
	if c.ConnectionIdleTTL == 0 {
		c.ConnectionIdleTTL = registry.DefaultIdleTTL
	}
	c.Version = strings.TrimSpace(versionFile) + "+" + strings.Join([]string{"dev", runtime.GOOS, runtime.GOARCH}, ".")
	return c
}

// Command wraps cobra.Command with the resolved configuration the RunE
// closure reads once flag parsing completes.
type Command struct {
	*cobra.Command
	cfg ServerConfig
}

// NewCommand builds the root relquery-gateway command.
func NewCommand() *Command {
	var cfg ServerConfig

	c := &Command{cfg: cfg}
	cmd := &cobra.Command{
		Use:   "relquery-gateway",
		Short: "Serve the dynamic relational query gateway",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			c.cfg = withDefaults(c.cfg)
			if _, err := log.SeverityToLevel(c.cfg.LogLevel); err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
			switch strings.ToLower(c.cfg.LoggingFormat) {
			case "standard", "json":
			default:
				return fmt.Errorf("invalid --logging-format: %q", c.cfg.LoggingFormat)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), c.cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&c.cfg.Address, "address", "a", "", "address the gateway listens on")
	flags.IntVarP(&c.cfg.Port, "port", "p", 0, "port the gateway listens on")
	flags.StringVar(&c.cfg.LoggingFormat, "logging-format", "", "logging format: 'standard' or 'json'")
	flags.StringVar(&c.cfg.LogLevel, "log-level", "", "logging level: DEBUG, INFO, WARN, or ERROR")
	flags.StringVar(&c.cfg.ConfigStore, "config-store", "", "path to the sqlite descriptor store")
	flags.DurationVar(&c.cfg.SchemaCacheTTL, "schema-cache-ttl", 0, "write-age TTL for cached table schemas")
	flags.DurationVar(&c.cfg.ConnectionIdleTTL, "connection-idle-ttl", 0, "recorded in the server config but not applied: the connection registry always uses its built-in 15m TTL")

	cmd.Version = versionFile
	cmd.SetVersionTemplate("{{.Version}}")

	c.Command = cmd
	return c
}

// run builds every component (config store, registry, schema cache,
// pipeline, router) and serves until ctx is cancelled (spec §6
// "Process lifecycle").
func run(ctx context.Context, cfg ServerConfig, stdout, stderr io.Writer) error {
	logger, err := log.NewLogger(cfg.LoggingFormat, cfg.LogLevel, stdout, stderr)
	if err != nil {
		return err
	}

	store, err := configstore.Open(cfg.ConfigStore)
	if err != nil {
		return fmt.Errorf("opening config store: %w", err)
	}
	defer store.Close()

	reg := registry.New(logger, sourceconn.Open)
	reg.Preload(ctx, store)

	schemas := schema.NewCache(0, cfg.SchemaCacheTTL, logger)
	p := pipeline.New(reg, schemas, store, logger)

	router := server.NewRouter(server.Config{Pipeline: p, Configs: store, Logger: logger})

	addr := fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: router}

	logger.InfoContext(ctx, "relquery-gateway listening", "address", addr, "version", cfg.Version)

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// Execute runs the root command against os.Args, exiting the process
// with a non-zero status on failure (spec §6 "Exit codes").
func Execute() {
	cmd := NewCommand()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	cmd.SetContext(ctx)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
