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

// Package configstore persists DatabaseDescriptors, the only state the
// gateway keeps of its own (spec §6 "Persisted state").
package configstore

import (
	"context"

	"github.com/relquery/gateway/internal/request"
)

// Store is the descriptor CRUD surface the registry and server depend
// on. Writes are serialized per descriptor id (spec §5).
type Store interface {
	GetByID(ctx context.Context, id string) (request.DatabaseDescriptor, error)
	ListAll(ctx context.Context) ([]request.DatabaseDescriptor, error)
	Insert(ctx context.Context, d request.DatabaseDescriptor) (request.DatabaseDescriptor, error)
	Update(ctx context.Context, d request.DatabaseDescriptor) (request.DatabaseDescriptor, error)
	Delete(ctx context.Context, id string) error
}

