// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cli wires this module's components into a cobra command tree:
// one subcommand per operation.
package cli

import "github.com/spf13/cobra"

// Root builds the stacktrace command tree.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "stacktrace",
		Short: "Capture, symbolicate, and render multi-stack traces",
	}
	root.AddCommand(
		renderCmd(),
		parseCmd(),
		symbolizeCmd(),
		captureCmd(),
		serveCmd(),
		shellCmd(),
	)
	return root
}
