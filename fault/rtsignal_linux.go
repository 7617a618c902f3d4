// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package fault

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// rendezvousSignal is the real-time signal this module's native
// predecessor reserves for foreign-thread backtrace rendezvous: 39 if it
// falls within the platform's real-time range, else SIGRTMIN+4 clamped to
// SIGRTMAX. This Go port no longer signals a goroutine directly (see the
// backtrace package's REDESIGN note), but the signal number stays
// reserved — excluded from the default catch set — for parity with the
// native implementation and for a future implementation that wants it.
func rendezvousSignal() syscall.Signal {
	min, max := unix.SIGRTMIN(), unix.SIGRTMAX()
	if 39 >= min && 39 <= max {
		return syscall.Signal(39)
	}
	s := min + 4
	if s > max {
		s = max
	}
	return syscall.Signal(s)
}
