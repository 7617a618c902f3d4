// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The stacktrace command exposes this module's capture, symbolication,
// and multi-stack rendering operations from the shell. Run "stacktrace
// help" for a list of subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/sigtrace/stacktrace/cmd/stacktrace/internal/cli"
)

func main() {
	if err := cli.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
