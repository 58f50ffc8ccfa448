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

// Package driver is the query driver (§4.G) and the outer request framing
// (§4.H): the fork-aware retry loop around one guest invocation per
// sub-request, and the legacy single-request compatibility path.
package driver

import (
	"fmt"

	"github.com/dfuse-io/wasmql/key"
	"github.com/dfuse-io/wasmql/wire"
)

// localNamespace is the only namespace literal accepted on the wire (§6).
var localNamespace = key.MustParseName("local")

// legacyShortName is the fixed guest short name used by the legacy path;
// there is no variant registered under it, since legacy requests never go
// through the range-query registry (§4.G "Legacy single-request path").
var legacyShortName = key.MustParseName("legacy")

// SubRequest is one element of the multi-sub-request top-level query (§4.H).
// The driver interprets Namespace and ShortName to route the request; it
// never interprets Payload, which is the guest's to parse.
type SubRequest struct {
	Namespace key.Name
	ShortName key.Name
	Payload   []byte
}

// DecodeMultiRequest reads the top-level wire request: `varuint32 n`, then n
// times `(name namespace, name short_name, bytes payload)`.
func DecodeMultiRequest(buf []byte) ([]SubRequest, error) {
	d := wire.NewDecoder(buf)
	n, err := d.ReadVarUint32()
	if err != nil {
		return nil, fmt.Errorf("driver: decode sub-request count: %w", err)
	}

	subs := make([]SubRequest, n)
	for i := range subs {
		ns, err := d.ReadName()
		if err != nil {
			return nil, fmt.Errorf("driver: decode sub-request %d namespace: %w", i, err)
		}
		sn, err := d.ReadName()
		if err != nil {
			return nil, fmt.Errorf("driver: decode sub-request %d short_name: %w", i, err)
		}
		payload, err := d.ReadBytes()
		if err != nil {
			return nil, fmt.Errorf("driver: decode sub-request %d payload: %w", i, err)
		}
		subs[i] = SubRequest{
			Namespace: key.Name(ns),
			ShortName: key.Name(sn),
			Payload:   append([]byte(nil), payload...),
		}
	}
	return subs, nil
}

// EncodeMultiReply writes the top-level wire reply: `varuint32 n`, then n
// times `(varuint32 len, len bytes)` — the same vector<vector<byte>> framing
// as §4.B, since the reply count always equals the request count (§4.H).
func EncodeMultiReply(blobs [][]byte) []byte {
	return wire.EncodeBlobVector(blobs)
}

// EncodeLegacyRequest synthesizes a legacy sub-request payload from the
// (target, request) pair the legacy transport supplies (§4.G "Legacy
// single-request path").
func EncodeLegacyRequest(target string, request []byte) []byte {
	e := wire.NewEncoder(nil)
	e.WriteString(target)
	e.WriteBytes(request)
	return e.Bytes()
}
