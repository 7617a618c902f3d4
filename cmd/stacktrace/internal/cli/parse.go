// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigtrace/stacktrace/multistack"
)

func parseCmd() *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse rendered multi-stack text back into packed bytes",
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
			node, err := multistack.Parse(r)
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}
			var buf bytes.Buffer
			if err := node.Pack(&buf); err != nil {
				return fmt.Errorf("pack: %w", err)
			}
			_, err = os.Stdout.Write(buf.Bytes())
			return err
		},
	}
	return cmd
}
