// Copyright 2020 dfuse Platform Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package driver

import (
	"fmt"

	"github.com/streamingfast/derr"
	"google.golang.org/grpc/codes"
)

// ErrorKind names one of the fatal attempt outcomes of §7. Every kind
// terminates the current attempt; only an internal fork detection retries.
type ErrorKind string

const (
	ErrEmptyDatabase    ErrorKind = "empty_database"
	ErrTooManyForks     ErrorKind = "too_many_forks"
	ErrUnknownNamespace ErrorKind = "unknown_namespace"
)

// Error wraps one of this package's own fatal outcomes with the grpc status
// derr needs to turn it into a transport-appropriate response at the
// boundary, the same Status/Statusf convention the rest of the fleet uses.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("driver: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("driver: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Status turns e into the grpc status a transport boundary should report,
// the same derr.Statusf convention used across the fleet.
func (e *Error) Status() error {
	switch e.Kind {
	case ErrEmptyDatabase:
		return derr.Statusf(codes.Unavailable, "empty database")
	case ErrUnknownNamespace:
		return derr.Statusf(codes.InvalidArgument, "unknown namespace")
	case ErrTooManyForks:
		return derr.Statusf(codes.Aborted, "too many forks")
	default:
		return derr.Statusf(codes.Internal, e.Error())
	}
}

func errEmptyDatabase() error {
	return &Error{Kind: ErrEmptyDatabase}
}

func errTooManyForks() error {
	return &Error{Kind: ErrTooManyForks}
}

func errUnknownNamespace(got string) error {
	return &Error{Kind: ErrUnknownNamespace, Err: fmt.Errorf("got %q, want %q", got, "local")}
}
