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

package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
)

func invokeCommand(args []string) (*Command, string, error) {
	c := NewCommand()

	c.SilenceUsage = true
	c.SilenceErrors = true

	buf := new(bytes.Buffer)
	c.SetOut(buf)
	c.SetErr(buf)
	c.SetArgs(args)

	c.RunE = func(*cobra.Command, []string) error {
		return nil
	}

	err := c.Execute()

	return c, buf.String(), err
}

func TestVersion(t *testing.T) {
	_, got, err := invokeCommand([]string{"--version"})
	if err != nil {
		t.Fatalf("error invoking command: %s", err)
	}
	want := strings.TrimSpace(versionFile)
	if !strings.Contains(got, want) {
		t.Errorf("cli did not return correct version: want %q, got %q", want, got)
	}
}

func TestServerConfigFlags(t *testing.T) {
	tcs := []struct {
		desc string
		args []string
		want ServerConfig
	}{
		{
			desc: "default values",
			args: []string{},
			want: withDefaults(ServerConfig{}),
		},
		{
			desc: "address short",
			args: []string{"-a", "127.0.1.1"},
			want: withDefaults(ServerConfig{Address: "127.0.1.1"}),
		},
		{
			desc: "address long",
			args: []string{"--address", "0.0.0.0"},
			want: withDefaults(ServerConfig{Address: "0.0.0.0"}),
		},
		{
			desc: "port short",
			args: []string{"-p", "5052"},
			want: withDefaults(ServerConfig{Port: 5052}),
		},
		{
			desc: "port long",
			args: []string{"--port", "5050"},
			want: withDefaults(ServerConfig{Port: 5050}),
		},
		{
			desc: "logging format",
			args: []string{"--logging-format", "json"},
			want: withDefaults(ServerConfig{LoggingFormat: "json"}),
		},
		{
			desc: "log level",
			args: []string{"--log-level", "WARN"},
			want: withDefaults(ServerConfig{LogLevel: "WARN"}),
		},
		{
			desc: "config store",
			args: []string{"--config-store", "/tmp/custom.db"},
			want: withDefaults(ServerConfig{ConfigStore: "/tmp/custom.db"}),
		},
		{
			desc: "schema cache ttl",
			args: []string{"--schema-cache-ttl", "5m"},
			want: withDefaults(ServerConfig{SchemaCacheTTL: 5 * time.Minute}),
		},
		{
			desc: "connection idle ttl",
			args: []string{"--connection-idle-ttl", "30m"},
			want: withDefaults(ServerConfig{ConnectionIdleTTL: 30 * time.Minute}),
		},
	}
	for _, tc := range tcs {
		t.Run(tc.desc, func(t *testing.T) {
			c, _, err := invokeCommand(tc.args)
			if err != nil {
				t.Fatalf("unexpected error invoking command: %s", err)
			}
			if diff := cmp.Diff(tc.want, c.cfg); diff != "" {
				t.Fatalf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInvalidFlagValues(t *testing.T) {
	tcs := []struct {
		desc string
		args []string
	}{
		{desc: "bad logging format", args: []string{"--logging-format", "fail"}},
		{desc: "bad log level", args: []string{"--log-level", "fail"}},
	}
	for _, tc := range tcs {
		t.Run(tc.desc, func(t *testing.T) {
			_, _, err := invokeCommand(tc.args)
			if err == nil {
				t.Fatalf("expected an error, got nil")
			}
		})
	}
}

func TestDefaultLoggingFormat(t *testing.T) {
	c, _, err := invokeCommand([]string{})
	if err != nil {
		t.Fatalf("unexpected error invoking command: %s", err)
	}
	if got, want := c.cfg.LoggingFormat, "standard"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDefaultLogLevel(t *testing.T) {
	c, _, err := invokeCommand([]string{})
	if err != nil {
		t.Fatalf("unexpected error invoking command: %s", err)
	}
	if got, want := c.cfg.LogLevel, "INFO"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
