// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package frame defines the resolved stack-frame value type shared by every
// other package in this module: the symbolicator fills it in, the
// multi-stack tree stores it at each node, and the renderer prints it.
package frame

import "fmt"

// Size bounds, in bytes, for the string fields of a Frame. They exist so a
// Frame has a known maximum footprint once packed (see Pack) even though Go
// strings themselves are not fixed-size.
const (
	MaxFunctionLen = 4096
	MaxObjectLen   = 256
	MaxFileLen     = 256
)

// Frame is one fully resolved stack frame: an address plus whatever object,
// function, and source-line information the symbolicator could recover for
// it. Zero value is a valid, fully-unresolved frame.
type Frame struct {
	// Address is the absolute return address.
	Address uint64
	// AddressRel is Address relative to the containing object's load base,
	// or equal to Address when the base is unknown.
	AddressRel uint64

	Object     string // short object/module file name (basename)
	ObjectPath string // directory portion of Object, "" if none

	Function string // demangled, canonicalized function name

	Filename     string // short source file name (basename)
	FilenamePath string // directory portion of Filename, "" if none
	Line         int    // source line, 0 if unknown
}

// Truncate clamps every string field to its maximum length in place.
func (f *Frame) Truncate() {
	f.Function = truncate(f.Function, MaxFunctionLen)
	f.Object = truncate(f.Object, MaxObjectLen)
	f.ObjectPath = truncate(f.ObjectPath, MaxObjectLen)
	f.Filename = truncate(f.Filename, MaxFileLen)
	f.FilenamePath = truncate(f.FilenamePath, MaxFileLen)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// Resolved reports whether the frame carries any symbol information at all.
func (f Frame) Resolved() bool {
	return f.Function != ""
}

// Equal implements the frame-equality rule used throughout this module
// (merging, cleanup, parse round-trip): two frames are equal if their
// absolute addresses match, or if their relative addresses and containing
// objects both match. The latter clause lets stacks collide across
// differently-loaded copies of the same object (ASLR rebases); the former
// is what makes that sound for statically-linked, non-relocated code.
//
// Address-only equality can cause false merges across distinct objects
// that happen to share a load address (rare, ASLR plus shared-library
// reuse); the rule is kept as-is rather than silently tightened.
func (a Frame) Equal(b Frame) bool {
	if a.Address == b.Address {
		return true
	}
	return a.AddressRel == b.AddressRel && a.Object == b.Object
}

// Valid reports whether the frame satisfies the data-model invariants: line
// numbers are non-negative, an object path implies an object, and a filename
// implies a resolved function.
func (f Frame) Valid() bool {
	if f.Line < 0 {
		return false
	}
	if f.ObjectPath != "" && f.Object == "" {
		return false
	}
	if f.Function == "" && f.Filename != "" {
		return false
	}
	return true
}

func (f Frame) String() string {
	if f.Function == "" {
		return fmt.Sprintf("0x%x", f.Address)
	}
	if f.Filename == "" {
		return fmt.Sprintf("0x%x %s", f.Address, f.Function)
	}
	return fmt.Sprintf("0x%x %s %s:%d", f.Address, f.Function, f.Filename, f.Line)
}
