// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigtrace/stacktrace/symbolize"
)

func symbolizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symbolize <addr> [addr...]",
		Short: "Resolve raw hex addresses against the running binary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addrs := make([]uint64, len(args))
			for i, a := range args {
				a = strings.TrimPrefix(a, "0x")
				v, err := strconv.ParseUint(a, 16, 64)
				if err != nil {
					return fmt.Errorf("invalid address %q: %w", args[i], err)
				}
				addrs[i] = v
			}
			frames, err := (symbolize.Symbolicator{}).Resolve(context.Background(), addrs)
			if err != nil {
				return err
			}
			for _, f := range frames {
				fmt.Fprintln(cmd.OutOrStdout(), f.String())
			}
			return nil
		},
	}
	return cmd
}
