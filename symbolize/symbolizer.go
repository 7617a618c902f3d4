// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package symbolize fills in frame.Frame metadata for a batch of raw
// addresses. It is deliberately batch-oriented: addresses are grouped by
// resolved object and handed to one external decoder invocation per
// object, because that invocation's per-process cost dwarfs per-address
// cost.
package symbolize

import (
	"context"
	"sort"

	"github.com/sigtrace/stacktrace/cleanup"
	"github.com/sigtrace/stacktrace/frame"
	"github.com/sigtrace/stacktrace/symtab"
)

// chunkSize bounds how many addresses go into a single decoder
// invocation's command line.
const chunkSize = 256

// Symbolicator resolves raw addresses into frame.Frame values. The zero
// value is ready to use.
type Symbolicator struct{}

// Resolve fills in (object, offset, function, file, line) for every
// address in addrs, preserving order. Any decoder failure for a given
// object leaves whatever fields stage 1/2 already filled in untouched —
// no error is returned for partial symbolication; Resolve's error return
// is reserved for fatal setup failures only (none currently exist, so
// it is always nil).
func (Symbolicator) Resolve(ctx context.Context, addrs []uint64) ([]frame.Frame, error) {
	frames := make([]frame.Frame, len(addrs))
	for i, a := range addrs {
		frames[i] = resolveDirect(a)
	}

	byObject := groupByObject(frames)
	for obj, idxs := range byObject {
		if obj.path == "" {
			continue
		}
		for start := 0; start < len(idxs); start += chunkSize {
			end := start + chunkSize
			if end > len(idxs) {
				end = len(idxs)
			}
			decodeLines(ctx, obj.path, frames, idxs[start:end])
		}
	}

	for i := range frames {
		frames[i].Function = cleanup.CanonicalizeFunctionName(frames[i].Function)
		frames[i].Truncate()
	}
	return frames, nil
}

// resolveDirect runs stages 1 and 2 of the pipeline for a single address:
// consult the platform loader, then fall back to the cached static symbol
// table.
func resolveDirect(addr uint64) frame.Frame {
	f := frame.Frame{Address: addr, AddressRel: addr}
	if obj, objPath, rel, ok := lookupLoaded(addr); ok {
		f.Object = obj
		f.ObjectPath = objPath
		f.AddressRel = rel
		return f
	}
	obj, objPath := symtab.LookupObject(addr)
	f.Object = obj
	f.ObjectPath = objPath
	return f
}

type objectKey struct {
	path string
}

// groupByObject returns, for each distinct resolved object, the indexes
// into frames that belong to it, in ascending-address order within the
// group — the order addr2line/atos expect their positional arguments in
// has no such requirement, but a stable order keeps output reproducible.
func groupByObject(frames []frame.Frame) map[objectKey][]int {
	groups := make(map[objectKey][]int)
	for i, f := range frames {
		path := f.ObjectPath
		if f.Object != "" {
			if path != "" {
				path = path + "/" + f.Object
			} else {
				path = f.Object
			}
		}
		key := objectKey{path: path}
		groups[key] = append(groups[key], i)
	}
	for _, idxs := range groups {
		sort.Slice(idxs, func(i, j int) bool { return frames[idxs[i]].Address < frames[idxs[j]].Address })
	}
	return groups
}
