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
	"io"

	"github.com/relquery/gateway/internal/assembler"
	"github.com/relquery/gateway/internal/errs"
	"github.com/relquery/gateway/internal/registry"
	"github.com/relquery/gateway/internal/request"
	"github.com/relquery/gateway/internal/rowshape"
	"github.com/relquery/gateway/internal/schema"
)

// Data executes the row-streaming operation, writing one NDJSON line per
// result row to w as they are produced (spec §4.7, §6 POST
// /api/query/data). Rows already written before a mid-stream failure
// remain delivered.
func (p *Pipeline) Data(ctx context.Context, q request.QueryRequest, w io.Writer) error {
	t := newTransition()
	src, baseSchema, err := p.resolveConnAndSchema(ctx, q, t)
	if err != nil {
		return err
	}

	sqlStr, args, err := assembler.BuildSelect(q, baseSchema, src.PlaceholderFormat())
	if err != nil {
		return t.fail(err)
	}
	t.advance(Assembled)

	t.advance(Executing)
	rows, err := src.DB.QueryxContext(ctx, sqlStr, args...)
	if err != nil {
		return t.fail(errs.Wrap(errs.BackendError, err, "executing query"))
	}
	defer rows.Close()

	refs := assembler.ProjectedColumns(q)
	writer := rowshape.NewNDJSONWriter(w, q.Pretty)

	t.advance(Streaming)
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return t.fail(errs.Wrap(errs.BackendError, err, "scanning row"))
		}
		colTypes, err := rows.ColumnTypes()
		if err != nil {
			return t.fail(errs.Wrap(errs.BackendError, err, "reading column metadata"))
		}
		cols := make([]rowshape.Column, len(values))
		for i, v := range values {
			ref := rowshape.ColumnRef{Name: colTypes[i].Name()}
			if refs != nil && i < len(refs) {
				ref = refs[i]
			}
			cols[i] = rowshape.Column{Ref: ref, SQLType: colTypes[i].DatabaseTypeName(), Value: v}
		}
		if err := writer.WriteRow(rowshape.Shape(cols)); err != nil {
			return t.fail(errs.Wrap(errs.CancelledError, err, "writing row"))
		}
		writer.Flush()

		select {
		case <-ctx.Done():
			return t.fail(errs.Wrap(errs.CancelledError, ctx.Err(), "client disconnected mid-stream"))
		default:
		}
	}
	if err := rows.Err(); err != nil {
		return t.fail(errs.Wrap(errs.BackendError, err, "reading result set"))
	}
	t.advance(Completed)
	t.advance(Done)
	return nil
}

// Count executes the row-counting operation (spec §4.5 "Variants", §6
// POST /api/query/count).
func (p *Pipeline) Count(ctx context.Context, q request.QueryRequest) (int64, error) {
	t := newTransition()
	src, baseSchema, err := p.resolveConnAndSchema(ctx, q, t)
	if err != nil {
		return 0, err
	}

	sqlStr, args, err := assembler.BuildCount(q, baseSchema, src.PlaceholderFormat())
	if err != nil {
		return 0, t.fail(err)
	}
	t.advance(Assembled)

	t.advance(Executing)
	var count int64
	if err := src.DB.QueryRowxContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, t.fail(errs.Wrap(errs.BackendError, err, "executing count"))
	}
	t.advance(Completed)
	t.advance(Done)
	return count, nil
}

// Delete executes the filtered-deletion operation (spec §4.5
// "Variants", §6 POST /api/query/delete).
func (p *Pipeline) Delete(ctx context.Context, q request.QueryRequest) (int64, error) {
	t := newTransition()
	src, baseSchema, err := p.resolveConnAndSchema(ctx, q, t)
	if err != nil {
		return 0, err
	}

	sqlStr, args, err := assembler.BuildDelete(q, baseSchema, src.PlaceholderFormat())
	if err != nil {
		return 0, t.fail(err)
	}
	t.advance(Assembled)

	t.advance(Executing)
	result, err := src.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, t.fail(errs.Wrap(errs.BackendError, err, "executing delete"))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, t.fail(errs.Wrap(errs.BackendError, err, "reading rows affected"))
	}
	if affected == 0 {
		return 0, t.fail(errs.New(errs.NotFound, "no rows matched the delete filter"))
	}
	t.advance(Completed)
	t.advance(Done)
	return affected, nil
}

// Schema executes the schema-introspection operation, returning
// column_name -> sql_type_name for the request's base table (spec §4.5
// "Variants", §6 POST /api/query/schema).
func (p *Pipeline) Schema(ctx context.Context, q request.QueryRequest) (map[string]string, error) {
	t := newTransition()
	descriptor, err := p.resolveDescriptor(ctx, q)
	if err != nil {
		return nil, t.fail(err)
	}
	src, err := p.Registry.Get(ctx, descriptor)
	if err != nil {
		return nil, t.fail(err)
	}
	t.advance(ResolvedConn)

	introspector := introspectorFor(src)
	key := schema.Key(registry.Key(descriptor), q.Table)
	baseSchema, err := p.Schemas.Get(ctx, key, q.Table, introspector)
	if err != nil {
		return nil, t.fail(err)
	}
	t.advance(ResolvedSchema)
	t.advance(Completed)
	t.advance(Done)

	out := make(map[string]string, len(baseSchema.Columns))
	for _, c := range baseSchema.Columns {
		out[c.Name] = c.SQLType
	}
	return out, nil
}
