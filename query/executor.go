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

// Package query implements the range executor (§4.D) and the snapshot
// session (§4.E) on top of the out-of-scope store.ColumnStore primitive.
package query

import (
	"bytes"
	"context"
	"errors"

	"github.com/dfuse-io/wasmql/registry"
	"github.com/dfuse-io/wasmql/store"
)

// ServerMaxResults is the server-side upper bound on max_results mentioned
// in §4.D (iv); a tunable, not a wire constant, so it lives here rather than
// in the registry.
const ServerMaxResults = 10000

var errMaxResultsReached = errors.New("query: max results reached")

// Run streams variant v over session in [bounds.First, bounds.Last],
// honoring max_block and max_results, and returns the already wire-encoded
// row for each distinct natural key in range — the latest version at or
// below max_block for time-sliced variants, or simply every row for
// append-only variants whose key schema is already unique (§4.D (ii)).
// Logically-deleted rows (Present=false) are returned like any other row
// (§4.D (iii)); the row bytes themselves carry the tombstone flag.
func Run(ctx context.Context, session store.Session, v *registry.Variant, bounds *registry.Bounds) ([][]byte, error) {
	if bounds.MaxResults == 0 || bounds.MaxBlock == 0 {
		return nil, nil
	}

	firstBytes := bounds.First.Encode()
	lastBytes := bounds.Last.Encode()
	if bytes.Compare(firstBytes, lastBytes) > 0 {
		return nil, nil
	}

	maxResults := bounds.MaxResults
	if maxResults > ServerMaxResults {
		maxResults = ServerMaxResults
	}

	var results [][]byte
	var curKey []byte
	var curRow []byte
	haveCur := false

	err := session.Scan(ctx, v, bounds.First, bounds.Last, bounds.MaxBlock, func(ver store.Version) error {
		kb := ver.NaturalKey.Encode()
		if haveCur && !bytes.Equal(kb, curKey) {
			results = append(results, curRow)
			haveCur = false
			if uint32(len(results)) >= maxResults {
				return errMaxResultsReached
			}
		}
		curKey = kb
		curRow = ver.Row
		haveCur = true
		return nil
	})

	if err != nil && err != errMaxResultsReached {
		return nil, err
	}
	if err != errMaxResultsReached && haveCur {
		results = append(results, curRow)
	}

	return results, nil
}
