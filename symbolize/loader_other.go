// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package symbolize

// lookupLoaded has no dynamic-loader introspection to fall back on outside
// Linux: macOS has no /proc equivalent, and the decoder fallback (atos,
// stage 3) already resolves load bias internally from the object's own
// path. Stage 2 (symtab) picks up the slack.
func lookupLoaded(addr uint64) (object, objectPath string, addrRel uint64, ok bool) {
	return "", "", 0, false
}
