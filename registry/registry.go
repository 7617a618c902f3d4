// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package registry maintains the process-wide set of goroutines that have
// opted in to participate in all-goroutines backtrace capture.
//
// Go gives us no signal we can raise on an arbitrary goroutine and no
// thread-exit hook to auto-unregister from, the two things the native
// thread registry this package replaces relies on. register_thread's
// "scoped-acquisition object ensures automatic unregister_thread even
// under forced unwind" becomes a caller-deferred Unregister call instead;
// StartLeakReaper exists to bound the damage when a caller forgets.
package registry

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// MaxEntries bounds the registry, mirroring the native registry's "at
// least 1024" sizing.
const MaxEntries = 1024

// Handle identifies one registered goroutine by its runtime-assigned
// goroutine id. The zero Handle is never issued by Register.
type Handle uint64

var (
	mu    sync.Mutex
	order []Handle
	seen  = map[Handle]struct{}{}
)

// GoroutineID parses the calling goroutine's id out of the header line of
// its own runtime.Stack dump ("goroutine 37 [running]:"), the only
// portable way Go exposes to learn "my own goroutine id".
func GoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return 0
	}
	b = b[len(prefix):]
	end := bytes.IndexByte(b, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(b[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Register adds the calling goroutine to the registry and returns a
// handle identifying it. Callers are expected to defer Unregister(h)
// immediately. Duplicate registration from the same goroutine is a no-op
// that returns the existing handle. If the registry is already at
// MaxEntries, Register returns the zero Handle and the caller is not
// registered.
func Register() Handle {
	h := Handle(GoroutineID())
	if h == 0 {
		return 0
	}
	mu.Lock()
	defer mu.Unlock()
	if _, ok := seen[h]; ok {
		return h
	}
	if len(order) >= MaxEntries {
		return 0
	}
	order = append(order, h)
	seen[h] = struct{}{}
	return h
}

// Unregister removes h from the registry. Removing an absent or
// already-removed handle is a no-op.
func Unregister(h Handle) {
	if h == 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	removeLocked(h)
}

func removeLocked(h Handle) {
	if _, ok := seen[h]; !ok {
		return
	}
	delete(seen, h)
	for i, o := range order {
		if o == h {
			order = append(order[:i:i], order[i+1:]...)
			break
		}
	}
}

// List returns the currently registered handles in insertion order.
func List() []Handle {
	mu.Lock()
	defer mu.Unlock()
	out := make([]Handle, len(order))
	copy(out, order)
	return out
}

// Len reports the number of registered handles.
func Len() int {
	mu.Lock()
	defer mu.Unlock()
	return len(order)
}

// Clear empties the registry. Intended for tests.
func Clear() {
	mu.Lock()
	defer mu.Unlock()
	order = nil
	seen = map[Handle]struct{}{}
}

// reaping tracks whether StartLeakReaper has an active loop, so calling it
// twice doesn't start two.
var reaping atomic.Bool

// StartLeakReaper launches a background goroutine that, every interval,
// drops registered handles whose goroutine id no longer appears in a
// runtime.Stack(buf, true) dump — bounding the lifetime of a leaked
// registration left behind by a caller that skipped Unregister. It
// returns a stop function; calling StartLeakReaper again before stopping
// the previous loop is a no-op that returns a no-op stop function.
func StartLeakReaper(interval time.Duration) (stop func()) {
	if !reaping.CompareAndSwap(false, true) {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				reaping.Store(false)
				return
			case <-ticker.C:
				reap()
			}
		}
	}()
	return func() { close(done) }
}

func reap() {
	live := livingGoroutineIDs()
	mu.Lock()
	defer mu.Unlock()
	var stale []Handle
	for _, h := range order {
		if _, ok := live[uint64(h)]; !ok {
			stale = append(stale, h)
		}
	}
	for _, h := range stale {
		removeLocked(h)
	}
}

// livingGoroutineIDs dumps every goroutine's stack (the cockroachdb
// allstacks technique: runtime.Stack(buf, true) rather than the lower-level
// runtime.GoroutineProfile, since we only need ids out of the header lines)
// and returns the set of ids currently live.
func livingGoroutineIDs() map[uint64]struct{} {
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
	return parseGoroutineIDs(buf)
}

func parseGoroutineIDs(dump []byte) map[uint64]struct{} {
	ids := map[uint64]struct{}{}
	const prefix = "goroutine "
	for _, line := range bytes.Split(dump, []byte("\n")) {
		if !bytes.HasPrefix(line, []byte(prefix)) {
			continue
		}
		rest := line[len(prefix):]
		end := bytes.IndexByte(rest, ' ')
		if end < 0 {
			continue
		}
		id, err := strconv.ParseUint(string(rest[:end]), 10, 64)
		if err != nil {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids
}
