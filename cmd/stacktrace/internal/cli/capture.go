// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sigtrace/stacktrace/backtrace"
	"github.com/sigtrace/stacktrace/cleanup"
	"github.com/sigtrace/stacktrace/multistack"
	"github.com/sigtrace/stacktrace/symbolize"
)

func captureCmd() *cobra.Command {
	var clean bool
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture this process's own call stack and render it",
		RunE: func(cmd *cobra.Command, args []string) error {
			pcs := backtrace.Self()
			frames, err := (symbolize.Symbolicator{}).Resolve(context.Background(), backtrace.Addresses(pcs))
			if err != nil {
				return err
			}
			node := multistack.New(frames)
			if clean {
				cleanup.CanonicalizeTree(node)
				cleanup.FilterTree(node)
			}
			return node.Render(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&clean, "clean", true, "canonicalize and filter before rendering")
	return cmd
}
