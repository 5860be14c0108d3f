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

package pipeline

import (
	"context"

	"github.com/relquery/gateway/internal/assembler"
	"github.com/relquery/gateway/internal/configstore"
	"github.com/relquery/gateway/internal/errs"
	"github.com/relquery/gateway/internal/log"
	"github.com/relquery/gateway/internal/registry"
	"github.com/relquery/gateway/internal/request"
	"github.com/relquery/gateway/internal/schema"
	"github.com/relquery/gateway/internal/sourceconn"
)

// Pipeline is component G: the composition root wiring the connection
// registry (D), schema cache (C), statement assembler (E), and row
// shaper (F) into the gateway's four public operations.
type Pipeline struct {
	Registry *registry.Registry
	Schemas  *schema.Cache
	Configs  configstore.Store
	Logger   log.Logger
}

// New builds a Pipeline over already-constructed components.
func New(reg *registry.Registry, schemas *schema.Cache, configs configstore.Store, logger log.Logger) *Pipeline {
	return &Pipeline{Registry: reg, Schemas: schemas, Configs: configs, Logger: logger}
}

// resolveDescriptor implements spec §3's config_id / direct_config
// selection: a request must carry at least one of them (validated by
// request.QueryRequest.Validate); when both are present direct_config
// wins, and direct_config never touches the config store.
func (p *Pipeline) resolveDescriptor(ctx context.Context, q request.QueryRequest) (request.DatabaseDescriptor, error) {
	if q.DirectConfig != nil {
		if err := q.DirectConfig.Validate(); err != nil {
			return request.DatabaseDescriptor{}, err
		}
		return *q.DirectConfig, nil
	}
	return p.Configs.GetByID(ctx, q.ConfigID)
}

// resolveConnAndSchema performs pipeline steps 1-2: resolve the
// descriptor's connection (state RESOLVED_CONN) and the base table's
// schema (state RESOLVED_SCHEMA), validating every unqualified column
// name referenced by the request against it.
func (p *Pipeline) resolveConnAndSchema(ctx context.Context, q request.QueryRequest, t *Transition) (*sourceconn.Source, *schema.Map, error) {
	descriptor, err := p.resolveDescriptor(ctx, q)
	if err != nil {
		return nil, nil, t.fail(err)
	}
	src, err := p.Registry.Get(ctx, descriptor)
	if err != nil {
		return nil, nil, t.fail(err)
	}
	t.advance(ResolvedConn)

	introspector := introspectorFor(src)
	key := schema.Key(registry.Key(descriptor), q.Table)
	baseSchema, err := p.Schemas.Get(ctx, key, q.Table, introspector)
	if err != nil {
		return nil, nil, t.fail(err)
	}
	t.advance(ResolvedSchema)

	if err := validateColumnsExist(q, baseSchema); err != nil {
		return nil, nil, t.fail(err)
	}
	return src, baseSchema, nil
}

func introspectorFor(src *sourceconn.Source) schema.Introspector {
	if src.DBType == "MYSQL" {
		return schema.NewMySQLIntrospector(src.DB)
	}
	return schema.NewPostgresIntrospector(src.DB)
}

// validateColumnsExist checks every unqualified column path the request
// references against baseSchema, and every qualified path's qualifier
// against the base alias/table and the request's joins (spec §3, §4.7
// step 2).
func validateColumnsExist(q request.QueryRequest, baseSchema *schema.Map) error {
	qualifiers := assembler.ValidQualifiers(q)
	check := func(path string) error {
		qualifier, column := assembler.SplitQualified(path)
		if qualifier == "" {
			if _, ok := baseSchema.Lookup(column); !ok {
				return errs.New(errs.InvalidArgument, "unknown column %q", column)
			}
			return nil
		}
		if !qualifiers[qualifier] {
			return errs.New(errs.InvalidArgument, "unknown qualifier %q", qualifier)
		}
		return nil
	}
	for _, s := range q.Filters {
		if err := check(s.Column); err != nil {
			return err
		}
	}
	if q.OrderBy != "" {
		if err := check(q.OrderBy); err != nil {
			return err
		}
	}
	for _, f := range q.SelectFields {
		if err := check(f); err != nil {
			return err
		}
	}
	return nil
}
