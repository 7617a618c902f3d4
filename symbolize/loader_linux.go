// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package symbolize

import (
	"bufio"
	"debug/elf"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// splitPath splits a full path into its directory (without trailing
// slash) and base name, mirroring filepath.Split but trimming the
// separator so an empty directory means "no directory".
func splitPath(p string) (dir, base string) {
	dir, base = filepath.Split(p)
	dir = strings.TrimSuffix(dir, "/")
	return dir, base
}

// mapping is one parsed row of /proc/self/maps: the virtual range [low,
// high) backed by pathname, with the corresponding offset into the file
// at low. The load bias for the object is low-offset.
type mapping struct {
	low, high uint64
	offset    uint64
	pathname  string
}

var (
	mapsOnce sync.Once
	maps     []mapping
)

func loadMaps() {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m, ok := parseMapsLine(sc.Text())
		if ok {
			maps = append(maps, m)
		}
	}
	sort.Slice(maps, func(i, j int) bool { return maps[i].low < maps[j].low })
}

func parseMapsLine(line string) (mapping, bool) {
	// "<low>-<high> perms offset dev inode pathname"
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return mapping{}, false
	}
	pathname := fields[5]
	if !strings.HasPrefix(pathname, "/") {
		return mapping{}, false
	}
	rangeParts := strings.SplitN(fields[0], "-", 2)
	if len(rangeParts) != 2 {
		return mapping{}, false
	}
	low, err := strconv.ParseUint(rangeParts[0], 16, 64)
	if err != nil {
		return mapping{}, false
	}
	high, err := strconv.ParseUint(rangeParts[1], 16, 64)
	if err != nil {
		return mapping{}, false
	}
	offset, err := strconv.ParseUint(fields[2], 16, 64)
	if err != nil {
		return mapping{}, false
	}
	return mapping{low: low, high: high, offset: offset, pathname: pathname}, true
}

// lookupLoaded implements stage 1 of the symbolicator pipeline: ask the
// dynamic loader (via /proc/self/maps) which object backs addr, and
// return its load-relative address. Function name lookup is left to the
// per-object decoder batch (stage 3), which already demangles and is
// authoritative for Go binaries; re-deriving it from the raw ELF symbol
// table here would just duplicate that work for no gain.
func lookupLoaded(addr uint64) (object, objectPath string, addrRel uint64, ok bool) {
	mapsOnce.Do(loadMaps)
	i := sort.Search(len(maps), func(i int) bool { return maps[i].high > addr })
	if i == len(maps) || maps[i].low > addr {
		return "", "", 0, false
	}
	m := maps[i]
	loadBias := m.low - m.offset
	rel := addr - loadBias

	dir, base := splitPath(m.pathname)
	return base, dir, rel, true
}

// dynamicSymbolAt is a best-effort helper that reads a raw symbol name out
// of an object's ELF symbol table without an addr2line invocation. It is
// not part of the Resolve pipeline, and nothing in this module calls it.
func dynamicSymbolAt(objectPath string, rel uint64) (string, error) {
	f, err := elf.Open(objectPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	syms, err := f.Symbols()
	if err != nil {
		syms, err = f.DynamicSymbols()
	}
	if err != nil {
		return "", err
	}

	var best elf.Symbol
	found := false
	for _, s := range syms {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC {
			continue
		}
		if s.Value <= rel && (!found || s.Value > best.Value) {
			best = s
			found = true
		}
	}
	if !found {
		return "", fmt.Errorf("symbolize: no function symbol at or below %#x", rel)
	}
	return best.Name, nil
}
