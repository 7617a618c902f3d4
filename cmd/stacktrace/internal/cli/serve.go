// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/sigtrace/stacktrace/backtrace"
	"github.com/sigtrace/stacktrace/cleanup"
	"github.com/sigtrace/stacktrace/multistack"
	"github.com/sigtrace/stacktrace/symbolize"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve this process's own stack trace over HTTP on demand",
		RunE: func(cmd *cobra.Command, args []string) error {
			mux := http.NewServeMux()
			mux.HandleFunc("/stacktrace", serveStack)
			return http.ListenAndServe(addr, mux)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":6062", "address to listen on")
	return cmd
}

func serveStack(w http.ResponseWriter, r *http.Request) {
	pcs := backtrace.Self()
	frames, err := (symbolize.Symbolicator{}).Resolve(context.Background(), backtrace.Addresses(pcs))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	node := multistack.New(frames)
	cleanup.CanonicalizeTree(node)
	cleanup.FilterTree(node)

	switch r.URL.Query().Get("format") {
	case "json":
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(node.Leaves())
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		node.Render(w)
	}
}
