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
	"context"
	"fmt"
	"path/filepath"

	"github.com/streamingfast/dmetrics"
	"github.com/streamingfast/dtracing"
	"github.com/streamingfast/logging"
	"go.uber.org/zap"

	"github.com/dfuse-io/wasmql/hostvm"
	"github.com/dfuse-io/wasmql/query"
)

var zlog = zap.NewNop()

func init() {
	logging.Register("github.com/dfuse-io/wasmql/driver", &zlog)
}

var metrics = dmetrics.NewSet()
var retryCount = metrics.NewCounter("wasmql_driver_retry_count", "number of attempt retries due to a detected fork")

// fork_missing_head and fork_head_changed are the two distinct FORK_CHECK
// outcomes did_fork distinguished (original_source/src/wasm_ql.cpp lines
// 96-107): the head block having disappeared from the snapshot entirely,
// versus the snapshot still having a block at head but under a different id.
var forkMissingHeadCount = metrics.NewCounter("wasmql_driver_fork_missing_head", "number of attempts where the head block was missing from the snapshot at FORK_CHECK")
var forkHeadChangedCount = metrics.NewCounter("wasmql_driver_fork_head_changed", "number of attempts where the head block id changed at FORK_CHECK")

// forkCause names why FORK_CHECK rejected an attempt, or forkNone if it
// committed.
type forkCause int

const (
	forkNone forkCause = iota
	forkMissingHead
	forkHeadChanged
)

func (c forkCause) String() string {
	switch c {
	case forkMissingHead:
		return "fork_missing_head"
	case forkHeadChanged:
		return "fork_head_changed"
	default:
		return "none"
	}
}

// MaxAttempts bounds the fork-retry loop (§4.G "Retry bound: exactly 4
// attempts total").
const MaxAttempts = 4

// QuerySession is the snapshot handle a driver attempt acquires and releases
// on every exit path (§4.E, §5 "Resource release").
type QuerySession interface {
	Close() error
	FillStatus(ctx context.Context) (fillHead uint32, fillHeadID [32]byte, statusBlob []byte, err error)
	BlockID(ctx context.Context, blockNum uint32) (id [32]byte, found bool, err error)
	QueryDatabase(ctx context.Context, request []byte, effectiveMaxBlock uint32) ([]byte, error)
}

// SessionFactory opens a QuerySession pinned to the store's current head.
type SessionFactory interface {
	CreateQuerySession(ctx context.Context) (QuerySession, error)
}

// ModuleLoader is the guest interpreter boundary consumed by RUN_GUEST:
// loading and instantiating the module at path, with host imports bound to
// bridge. This is the out-of-scope guest VM of §1, reached only through
// this interface.
type ModuleLoader interface {
	Load(ctx context.Context, path string, bridge *hostvm.Bridge) (hostvm.GuestVM, error)
}

// Driver is the query driver (§4.G): one OPEN_SNAPSHOT/FILL_CONTEXT/
// RUN_GUEST/FORK_CHECK attempt loop per top-level request.
type Driver struct {
	Sessions SessionFactory
	Loader   ModuleLoader
	WasmDir  string
}

// ModulePath returns the guest module path for a given short name, per §6
// "Module loading": `<wasm_dir>/<short_name>-server.wasm`.
func (d *Driver) ModulePath(shortName string) string {
	return filepath.Join(d.WasmDir, shortName+"-server.wasm")
}

// RunMultiRequest runs the multi-sub-request top-level query path (§4.G data
// flow, §4.H framing): decode, run every sub-request against one snapshot
// per attempt, retry the whole batch on a detected fork, and encode the
// reply. It never returns a partial reply (§7 invariant 1).
func (d *Driver) RunMultiRequest(ctx context.Context, requestBuf []byte) ([]byte, error) {
	subs, err := DecodeMultiRequest(requestBuf)
	if err != nil {
		return nil, err
	}
	for _, s := range subs {
		if s.Namespace != localNamespace {
			return nil, errUnknownNamespace(s.Namespace.String())
		}
	}

	blobs, err := d.run(ctx, subs)
	if err != nil {
		return nil, err
	}
	return EncodeMultiReply(blobs), nil
}

// RunLegacyRequest runs the legacy single-request path (§4.G "Legacy
// single-request path"): a single synthesized sub-request under the fixed
// short name "legacy", whose reply is the guest's raw output, unframed.
func (d *Driver) RunLegacyRequest(ctx context.Context, target string, request []byte) ([]byte, error) {
	sub := SubRequest{
		Namespace: localNamespace,
		ShortName: legacyShortName,
		Payload:   EncodeLegacyRequest(target, request),
	}

	blobs, err := d.run(ctx, []SubRequest{sub})
	if err != nil {
		return nil, err
	}
	return blobs[0], nil
}

// run is the attempt loop shared by both paths: OPEN_SNAPSHOT, FILL_CONTEXT,
// RUN_GUEST over every sub-request, FORK_CHECK once at the end of the
// batch, then COMMIT, RETRY, or FAIL.
func (d *Driver) run(ctx context.Context, subs []SubRequest) ([][]byte, error) {
	var lastErr error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		blobs, cause, err := d.attempt(ctx, subs, attempt)
		if err != nil {
			return nil, err
		}
		if cause == forkNone {
			return blobs, nil
		}

		switch cause {
		case forkMissingHead:
			zlog.Info("fork detected: head block missing from snapshot, retrying whole request", zap.Int("attempt", attempt))
			forkMissingHeadCount.Inc()
		case forkHeadChanged:
			zlog.Info("fork detected: head block id changed, retrying whole request", zap.Int("attempt", attempt))
			forkHeadChangedCount.Inc()
		}
		lastErr = fmt.Errorf("fork detected on attempt %d: %v", attempt, cause)
		retryCount.Inc()
	}
	zlog.Warn("exhausted retry budget", zap.Error(lastErr))
	return nil, errTooManyForks()
}

// attempt runs exactly one OPEN_SNAPSHOT -> FILL_CONTEXT -> RUN_GUEST ->
// FORK_CHECK cycle. The session is released on every exit path.
func (d *Driver) attempt(ctx context.Context, subs []SubRequest, attemptNum int) (blobs [][]byte, cause forkCause, err error) {
	ctx, span := dtracing.StartSpan(ctx, "driver.attempt", "attempt", attemptNum)
	defer span.End()

	session, err := d.Sessions.CreateQuerySession(ctx)
	if err != nil {
		return nil, forkNone, fmt.Errorf("driver: open snapshot: %w", err)
	}
	defer session.Close()

	head, headID, statusBlob, err := session.FillStatus(ctx)
	if err != nil {
		return nil, forkNone, fmt.Errorf("driver: fill status: %w", err)
	}
	if head == 0 {
		return nil, forkNone, errEmptyDatabase()
	}

	staged := make([][]byte, 0, len(subs))
	for _, sub := range subs {
		blob, err := d.runGuest(ctx, sub, session, statusBlob, head)
		if err != nil {
			return nil, forkNone, err
		}
		staged = append(staged, blob)
	}

	blockID, found, err := session.BlockID(ctx, head)
	if err != nil {
		return nil, forkNone, fmt.Errorf("driver: fork check: %w", err)
	}
	if !found {
		return nil, forkMissingHead, nil
	}
	if blockID != headID {
		return nil, forkHeadChanged, nil
	}

	return staged, forkNone, nil
}

// runGuest is RUN_GUEST for one sub-request: load the module, bind the
// bridge's per-sub-request state, call initialize then run_query, and
// return whatever the guest wrote via set_output_data.
func (d *Driver) runGuest(ctx context.Context, sub SubRequest, session QuerySession, statusBlob []byte, head uint32) ([]byte, error) {
	ctx, span := dtracing.StartSpan(ctx, "driver.run_guest", "short_name", sub.ShortName.String())
	defer span.End()

	bridge := &hostvm.Bridge{
		Querier:            session,
		DatabaseStatusBlob: statusBlob,
		InputData:          sub.Payload,
		EffectiveMaxBlock:  head,
	}

	vm, err := d.Loader.Load(ctx, d.ModulePath(sub.ShortName.String()), bridge)
	if err != nil {
		return nil, fmt.Errorf("driver: load module for %q: %w", sub.ShortName, err)
	}
	bridge.VM = vm

	if err := vm.Call(ctx, "initialize"); err != nil {
		return nil, fmt.Errorf("driver: guest trap in initialize: %w", err)
	}
	if err := vm.Call(ctx, "run_query"); err != nil {
		return nil, fmt.Errorf("driver: guest trap in run_query: %w", err)
	}

	return bridge.Output, nil
}

// NewQuerySessionAdapter adapts a *query.Session (this module's own §4.E
// composition) to the narrower QuerySession interface this package drives.
func NewQuerySessionAdapter(s *query.Session) QuerySession {
	return &querySessionAdapter{s: s}
}

type querySessionAdapter struct {
	s *query.Session
}

func (a *querySessionAdapter) Close() error { return a.s.Close() }

func (a *querySessionAdapter) FillStatus(ctx context.Context) (uint32, [32]byte, []byte, error) {
	status, err := a.s.FillStatus(ctx)
	if err != nil {
		return 0, [32]byte{}, nil, err
	}
	return status.Head, status.HeadID, status.Bytes(), nil
}

func (a *querySessionAdapter) BlockID(ctx context.Context, blockNum uint32) ([32]byte, bool, error) {
	return a.s.BlockID(ctx, blockNum)
}

func (a *querySessionAdapter) QueryDatabase(ctx context.Context, request []byte, effectiveMaxBlock uint32) ([]byte, error) {
	return a.s.QueryDatabase(ctx, request, effectiveMaxBlock)
}

// SessionFactoryAdapter adapts a *query.Host to SessionFactory.
type SessionFactoryAdapter struct {
	Host *query.Host
}

func (a *SessionFactoryAdapter) CreateQuerySession(ctx context.Context) (QuerySession, error) {
	s, err := a.Host.CreateQuerySession(ctx)
	if err != nil {
		return nil, err
	}
	return NewQuerySessionAdapter(s), nil
}
