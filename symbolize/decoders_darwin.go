// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin

package symbolize

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sigtrace/stacktrace/frame"
	"github.com/sigtrace/stacktrace/internal/decoder"
)

// decodeLines runs atos once for every address in idxs against object. atos
// prints one "function (in object) (file:line)" line per address, in input
// order, with the parenthesized parts omitted whenever unknown.
func decodeLines(ctx context.Context, object string, frames []frame.Frame, idxs []int) {
	if !decoder.Available("atos") {
		return
	}
	args := []string{"-o", object, "-l", "0x0"}
	for _, i := range idxs {
		args = append(args, fmt.Sprintf("%#x", frames[i].AddressRel))
	}

	var out []string
	decoder.Run(ctx, "atos", args, func(l string) {
		out = append(out, l)
	})

	for j, i := range idxs {
		if j >= len(out) {
			break
		}
		function, file, line := parseAtosLine(out[j])
		if function != "" {
			frames[i].Function = function
		}
		if file != "" {
			frames[i].Filename = file
			frames[i].Line = line
		}
	}
}

// parseAtosLine parses "name (in Object) (file.c:123)", tolerating a
// missing file/line segment when atos has no debug info for the frame.
func parseAtosLine(s string) (function, file string, line int) {
	inIdx := strings.Index(s, " (in ")
	if inIdx < 0 {
		return strings.TrimSpace(s), "", 0
	}
	function = strings.TrimSpace(s[:inIdx])
	rest := s[inIdx:]
	open := strings.LastIndexByte(rest, '(')
	close := strings.LastIndexByte(rest, ')')
	if open < 0 || close < 0 || close <= open {
		return function, "", 0
	}
	loc := rest[open+1 : close]
	colon := strings.LastIndexByte(loc, ':')
	if colon < 0 {
		return function, "", 0
	}
	n, err := strconv.Atoi(loc[colon+1:])
	if err != nil {
		return function, "", 0
	}
	return function, loc[:colon], n
}
