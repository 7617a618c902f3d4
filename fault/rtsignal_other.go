// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package fault

import "syscall"

// rendezvousSignal has no real-time signal range to reserve from outside
// Linux; SIGUSR2 is excluded instead, matching the original_source's own
// "#define SIGRTMIN SIGUSR1"-style fallback for platforms without POSIX
// real-time signals.
func rendezvousSignal() syscall.Signal {
	return syscall.SIGUSR2
}
