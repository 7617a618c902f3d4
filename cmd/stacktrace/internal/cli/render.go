// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigtrace/stacktrace/cleanup"
	"github.com/sigtrace/stacktrace/multistack"
)

func renderCmd() *cobra.Command {
	var in string
	var clean bool
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a packed multi-stack as text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				in = args[0]
			}
			r, closeFn, err := openInput(in)
			if err != nil {
				return err
			}
			defer closeFn()
			node, err := multistack.Unpack(r)
			if err != nil {
				return fmt.Errorf("unpack: %w", err)
			}
			if clean {
				cleanup.CanonicalizeTree(node)
				cleanup.FilterTree(node)
			}
			return node.Render(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&clean, "clean", false, "canonicalize and filter before rendering")
	return cmd
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
