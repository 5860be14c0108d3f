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

// Package errs defines the typed error kinds the gateway surfaces to
// callers (spec §7). Every component in internal/* returns one of these
// instead of a bare error so the HTTP layer can map it to a status code
// without re-inspecting message text.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies one of the error categories the core distinguishes.
type Kind string

const (
	InvalidArgument Kind = "INVALID_ARGUMENT"
	NotFound        Kind = "NOT_FOUND"
	BackendError    Kind = "BACKEND_ERROR"
	ConflictError   Kind = "CONFLICT"
	CancelledError  Kind = "CANCELLED"
	InternalError   Kind = "INTERNAL"
)

// Error is the concrete type returned by every fallible core operation.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

var _ error = (*Error)(nil)

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Category mirrors the teacher's ToolboxError.Category() split, here used
// to pick which log stream (out vs err) a failure belongs on.
func (e *Error) Category() string {
	switch e.Kind {
	case InvalidArgument, NotFound, ConflictError, CancelledError:
		return "CLIENT_ERROR"
	default:
		return "SERVER_ERROR"
	}
}

// HTTPStatus maps a Kind to the status code spec §7 assigns it.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case ConflictError:
		return http.StatusConflict
	case CancelledError:
		return 499 // client closed request, nginx convention
	case BackendError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error, otherwise it returns InternalError — an unclassified failure is
// an invariant violation, never something to silently pass through as a
// 200.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return InternalError
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
