// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package symtab provides lazy, process-wide cached access to the static
// symbol table of the running executable, populated from a host nm-like
// tool. It is the fallback the symbolicator (package symbolize) reaches
// for when the dynamic loader has nothing to say about an address.
package symtab

import (
	"context"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sigtrace/stacktrace/internal/decoder"
)

// Entry is one row of the static symbol table: an address, the nm type
// character, and the basename/dirname of the object it belongs to (always
// the executable itself for this package; symbolize attributes dynamic
// library symbols separately).
type Entry struct {
	Address    uint64
	Type       byte
	Object     string
	ObjectPath string
}

var (
	mu       sync.Mutex
	cache    []Entry
	populated bool
)

// GetSymbols returns a snapshot of the process's static symbol table. The
// first call populates the cache under a process-wide mutex by running the
// platform's symbol extractor against the executable path; later calls
// return a copy of the cached table. A populate failure — missing tool,
// unreadable executable, malformed output — yields an empty table,
// never an error; at most one extractor invocation runs per Clear.
func GetSymbols() []Entry {
	mu.Lock()
	defer mu.Unlock()
	if !populated {
		cache = populate()
		populated = true
	}
	out := make([]Entry, len(cache))
	copy(out, cache)
	return out
}

// ClearSymbols atomically drops the cache; the next GetSymbols call
// re-populates it.
func ClearSymbols() {
	mu.Lock()
	defer mu.Unlock()
	cache = nil
	populated = false
}

// GetExecutable returns the path GetSymbols resolves the running
// executable to.
func GetExecutable() (string, error) {
	return os.Executable()
}

// LookupObject does a binary search for the greatest entry with
// Address <= addr and returns its object name and path; if none, or if
// the table is empty, it falls back to the executable itself.
func LookupObject(addr uint64) (object, objectPath string) {
	entries := GetSymbols()
	exe, err := GetExecutable()
	fallbackObj, fallbackPath := "", ""
	if err == nil {
		fallbackPath, fallbackObj = splitPath(exe)
	}
	if len(entries) == 0 {
		return fallbackObj, fallbackPath
	}
	i := sort.Search(len(entries), func(i int) bool { return entries[i].Address > addr })
	if i == 0 {
		return fallbackObj, fallbackPath
	}
	e := entries[i-1]
	return e.Object, e.ObjectPath
}

func populate() []Entry {
	exe, err := os.Executable()
	if err != nil {
		return nil
	}
	objPath, obj := splitPath(exe)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var lines []string
	switch runtime.GOOS {
	case "linux":
		if !decoder.Available("nm") {
			return nil
		}
		if _, err := decoder.Run(ctx, "nm", []string{"--numeric-sort", "--demangle", exe}, func(l string) {
			lines = append(lines, l)
		}); err != nil && len(lines) == 0 {
			return nil
		}
	case "darwin":
		if !decoder.Available("nm") || !decoder.Available("c++filt") {
			return nil
		}
		lines = runPiped(ctx, exe)
	default:
		// No usable external tool on this platform (e.g. Windows).
		return nil
	}

	entries := make([]Entry, 0, len(lines))
	for _, l := range lines {
		e, ok := parseNmLine(l, obj, objPath)
		if ok {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Address < entries[j].Address })
	return entries
}

// runPiped runs "nm <exe> | c++filt" on Darwin by shelling the pipeline
// out through two decoder calls glued by an in-memory buffer, since
// decoder.Run/RunWithInput each drive a single command.
func runPiped(ctx context.Context, exe string) []string {
	var raw []string
	if _, err := decoder.Run(ctx, "nm", []string{exe}, func(l string) {
		raw = append(raw, l)
	}); err != nil && len(raw) == 0 {
		return nil
	}
	return filterThroughCppfilt(ctx, raw)
}

// filterThroughCppfilt pipes lines through "c++filt" on stdin and returns
// its stdout, one line in and one line out per nm line, which is exactly
// how nm | c++filt behaves: c++filt demangles whatever trailing symbol
// name it finds on a line and passes the rest through unchanged. If
// c++filt produces fewer lines than it was given (it shouldn't, but a
// crash or early exit would truncate), the missing tail is passed through
// unfiltered rather than dropped, so Address/Type/Object parsing in
// parseNmLine never loses an entry to a demangling failure.
func filterThroughCppfilt(ctx context.Context, lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	var out []string
	decoder.RunWithInput(ctx, "c++filt", nil, strings.Join(lines, "\n")+"\n", func(l string) {
		out = append(out, l)
	})
	for i := len(out); i < len(lines); i++ {
		out = append(out, lines[i])
	}
	return out
}

// parseNmLine parses one "<hex-address> <type-char> <symbol>" line.
func parseNmLine(line, obj, objPath string) (Entry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Entry{}, false
	}
	addr, err := strconv.ParseUint(fields[0], 16, 64)
	if err != nil {
		return Entry{}, false
	}
	if len(fields[1]) != 1 {
		return Entry{}, false
	}
	return Entry{
		Address:    addr,
		Type:       fields[1][0],
		Object:     obj,
		ObjectPath: objPath,
	}, true
}

func splitPath(p string) (dir, base string) {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}
