// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package decoder wraps invocation of the external, line-oriented tools
// this module delegates to (nm, addr2line, atos): run a command, stream
// its stdout lines to a callback, return its exit code. Every caller in
// symtab and symbolize is expected to treat a non-nil error here as
// "nothing learned, not a crash": a missing tool degrades the result,
// it never panics or surfaces up.
package decoder

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"
)

// Run executes name with args, calling line for each line written to its
// standard output (trailing newline stripped), and returns its exit code.
// Standard error is discarded; callers pipe the decoder's stderr away
// (e.g. "2>/dev/null") rather than surface tool diagnostics.
func Run(ctx context.Context, name string, args []string, line func(string)) (exitCode int, err error) {
	return RunWithInput(ctx, name, args, "", line)
}

// RunWithInput is Run with input written to the child's standard input
// before its stdout is read, for filters like c++filt that transform
// whatever lines they're fed rather than taking a file argument.
func RunWithInput(ctx context.Context, name string, args []string, input string, line func(string)) (exitCode int, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, err
	}
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return -1, err
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line(scanner.Text())
	}
	scanErr := scanner.Err()

	waitErr := cmd.Wait()
	if scanErr != nil && scanErr != io.EOF {
		return exitCodeOf(waitErr), scanErr
	}
	return exitCodeOf(waitErr), waitErr
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

// Available reports whether name can be found on PATH, the check every
// caller runs before invoking a decoder so a missing tool degrades
// silently rather than failing on the first Run.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
