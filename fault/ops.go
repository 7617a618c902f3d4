// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fault

import (
	"fmt"
	"os"
	"runtime"
)

// Abort builds a fully populated AbortError{Type: Abort} with the current
// stack (captured at the default stack type) and panics with it — the
// preferred failure-path primitive for callers of this package, standing
// in for a throwing abort().
func Abort(msg string, source SourceLocation) {
	panic(&AbortError{
		Type:      TypeAbort,
		Source:    source,
		Message:   msg,
		StackType: currentStackType(),
		Stack:     captureStack(currentStackType()),
		BytesUsed: currentBytesUsed(),
	})
}

// CallerLocation builds a SourceLocation for the line that calls
// CallerLocation, a convenience for callers of Abort that don't want to
// hand-build a SourceLocation themselves.
func CallerLocation() SourceLocation {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		return SourceLocation{}
	}
	return SourceLocation{File: file, Line: line}
}

// Terminate writes err.Error() to stderr and then exits the process with
// status 2. It does not contact other ranks: peers on the installed
// cluster fabric are not told to abort. There is no throw_exception policy
// toggle, so Terminate always logs then exits rather than re-raising.
func Terminate(err error) {
	terminateMu.Lock()
	defer terminateMu.Unlock()
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(2)
}

// Recover is meant to be deferred once near the top of main. If the
// deferred call stack is unwinding because of a panic, it builds an
// AbortError{Type: Exception} (message "Unknown exception" for a panic
// value that isn't itself an error or a string), invokes the installed
// handler if any, and re-panics so the process still terminates — Go has
// no equivalent of catching and suppressing at std::terminate.
func Recover() {
	r := recover()
	if r == nil {
		return
	}
	if already, ok := r.(*AbortError); ok {
		if h := currentHandler(); h != nil {
			h(already)
		}
		panic(already)
	}
	msg := "Unknown exception"
	switch v := r.(type) {
	case error:
		msg = v.Error()
	case string:
		msg = v
	}
	err := &AbortError{
		Type:      TypeException,
		Message:   msg,
		StackType: currentStackType(),
		Stack:     captureStack(currentStackType()),
		BytesUsed: currentBytesUsed(),
	}
	if h := currentHandler(); h != nil {
		h(err)
	}
	panic(err)
}

func currentBytesUsed() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc
}
