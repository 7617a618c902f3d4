// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/sigtrace/stacktrace/cleanup"
	"github.com/sigtrace/stacktrace/multistack"
)

// shellCmd opens an interactive multi-stack browser: load a packed or
// rendered file, then walk it with a handful of short commands.
func shellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell [file]",
		Short: "Interactively browse a multi-stack",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			node, err := loadTree(path)
			if err != nil {
				return err
			}
			return runShell(cmd.OutOrStdout(), node)
		},
	}
	return cmd
}

func loadTree(path string) (*multistack.Node, error) {
	r, closeFn, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	raw := buf.Bytes()

	if node, err := multistack.Unpack(bytes.NewReader(raw)); err == nil {
		return node, nil
	}
	return multistack.Parse(bytes.NewReader(raw))
}

func runShell(out io.Writer, root *multistack.Node) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "stacktrace> ",
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          out,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintln(out, `commands: render, clean, leaves, quit`)
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch strings.TrimSpace(line) {
		case "render":
			root.Render(out)
		case "clean":
			cleanup.CanonicalizeTree(root)
			cleanup.FilterTree(root)
			fmt.Fprintln(out, "cleaned")
		case "leaves":
			for _, l := range root.Leaves() {
				fmt.Fprintf(out, "[%d] depth=%d\n", l.N, len(l.Stack))
			}
		case "quit", "exit":
			return nil
		case "":
			continue
		default:
			fmt.Fprintf(out, "unknown command %q\n", line)
		}
	}
}
