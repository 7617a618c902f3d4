// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package backtrace collects raw address vectors from the calling
// goroutine, and already-symbolized frames from another registered
// goroutine or every registered goroutine.
//
// The native self/foreign/all-threads trio this package implements
// assumes a signal can be delivered to and synchronously handled on an
// arbitrary OS thread. Go's goroutines are M:N scheduled onto OS threads
// and carry no such primitive, so foreign and all-goroutine capture are
// built instead on periodically dumping runtime.Stack(buf, true) and
// slicing out the block for a registered goroutine id, the technique
// cockroachdb/cockroach's allstacks/filterstacks packages use for exactly
// this purpose. Unlike Self, which returns raw program counters for the
// usual symbolize pipeline, foreign/all capture returns frames that are
// already symbolized — runtime.Stack's per-goroutine text is produced by
// the runtime's own unwinder and carries function/file/line plainly,
// with no addr2line round trip available or needed. See the module's
// REDESIGN notes.
package backtrace

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"time"

	"github.com/sigtrace/stacktrace/frame"
	"github.com/sigtrace/stacktrace/registry"
)

// MaxFrames bounds the address vector returned by Self, matching the
// spec's 1,000-frame cap.
const MaxFrames = 1000

// DefaultForeignDeadline is how long Foreign polls for a registered
// goroutine's block to appear in a stack dump before giving up and
// returning nil, mirroring the signal-rendezvous protocol's 150 ms cap.
const DefaultForeignDeadline = 150 * time.Millisecond

// Self captures the calling goroutine's own stack, innermost frame first,
// via runtime.Callers — the Go-native equivalent of libc backtrace().
func Self() []uintptr {
	pc := make([]uintptr, MaxFrames)
	// skip=2 drops runtime.Callers' own frame and Self's frame, so the
	// first entry returned is Self's caller.
	n := runtime.Callers(2, pc)
	return pc[:n]
}

// Addresses converts the program counters Self returns into the raw
// uint64 address vector the symbolize package's Resolve expects.
func Addresses(pcs []uintptr) []uint64 {
	out := make([]uint64, len(pcs))
	for i, pc := range pcs {
		out[i] = uint64(pc)
	}
	return out
}

// Foreign captures the already-symbolized frames of the goroutine
// identified by h, polling with runtime.Gosched between stack dumps until
// found or the deadline (150 ms, or ctx's deadline if sooner) elapses. It
// never returns an error; an absent or not-yet-visible goroutine yields a
// nil slice. Foreign never captures the calling goroutine via this path —
// a caller that wants its own stack should call Self directly.
func Foreign(ctx context.Context, h registry.Handle) []frame.Frame {
	deadline := time.Now().Add(DefaultForeignDeadline)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	self := registry.GoroutineID()
	for {
		if uint64(h) != self {
			if frames, ok := dumpOne(h); ok {
				return frames
			}
		}
		if time.Now().After(deadline) {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
			runtime.Gosched()
		}
	}
}

// All captures one frame slice per currently registered goroutine, in
// registry order, from a single shared stack dump so concurrent
// registrants are captured at a consistent instant.
func All(ctx context.Context) [][]frame.Frame {
	handles := registry.List()
	blocks := dumpAll()
	out := make([][]frame.Frame, len(handles))
	for i, h := range handles {
		out[i] = blocks[uint64(h)]
	}
	return out
}

func dumpOne(h registry.Handle) ([]frame.Frame, bool) {
	blocks := dumpAll()
	frames, ok := blocks[uint64(h)]
	return frames, ok
}

// dumpAll dumps every goroutine's stack and parses it into frame slices
// keyed by goroutine id.
func dumpAll() map[uint64][]frame.Frame {
	size := 1 << 16
	var buf []byte
	for {
		buf = make([]byte, size)
		n := runtime.Stack(buf, true)
		if n < size {
			buf = buf[:n]
			break
		}
		size *= 2
		if size > 1<<26 {
			break
		}
	}
	return parseStackDump(buf)
}

// parseStackDump splits a runtime.Stack(all=true) dump into per-goroutine
// blocks and parses each into a frame slice. The dump format is:
//
//	goroutine 37 [running]:
//	main.foo(0x1, 0x2)
//		/path/to/file.go:123 +0x45
//	main.bar(...)
//		/path/to/other.go:67 +0x12
//	created by main.main
//		/path/to/main.go:10 +0x9
func parseStackDump(dump []byte) map[uint64][]frame.Frame {
	out := map[uint64][]frame.Frame{}
	lines := bytes.Split(dump, []byte("\n"))
	const prefix = "goroutine "

	var curID uint64
	var curFrames []frame.Frame
	flush := func() {
		if curID != 0 {
			out[curID] = curFrames
		}
	}
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if bytes.HasPrefix(line, []byte(prefix)) {
			flush()
			curID = parseID(line[len(prefix):])
			curFrames = nil
			continue
		}
		if len(line) == 0 || curID == 0 {
			continue
		}
		if line[0] == '\t' {
			// Location line for the function named on the previous line;
			// already consumed alongside it.
			continue
		}
		if bytes.HasPrefix(line, []byte("created by ")) {
			// Creator line: informational, not a live frame on this stack.
			i++ // skip its location line
			continue
		}
		fn := string(line)
		if paren := bytes.IndexByte(line, '('); paren >= 0 {
			fn = string(line[:paren])
		}
		var filename string
		var fileLine int
		if i+1 < len(lines) && len(lines[i+1]) > 0 && lines[i+1][0] == '\t' {
			filename, fileLine = parseLocation(lines[i+1][1:])
		}
		curFrames = append(curFrames, frame.Frame{
			Function: fn,
			Filename: filename,
			Line:     fileLine,
		})
	}
	flush()
	return out
}

func parseID(rest []byte) uint64 {
	end := bytes.IndexByte(rest, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(rest[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func parseLocation(loc []byte) (filename string, line int) {
	space := bytes.IndexByte(loc, ' ')
	if space >= 0 {
		loc = loc[:space]
	}
	colon := bytes.LastIndexByte(loc, ':')
	if colon < 0 {
		return string(loc), 0
	}
	n, err := strconv.Atoi(string(loc[colon+1:]))
	if err != nil {
		return string(loc), 0
	}
	return string(loc[:colon]), n
}
