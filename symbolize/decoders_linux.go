// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package symbolize

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sigtrace/stacktrace/frame"
	"github.com/sigtrace/stacktrace/internal/decoder"
)

// decodeLines runs addr2line once for every address in idxs against object,
// filling in Function/File/Line for frames[idxs[i]]. Each frame is passed
// twice, absolute address then load-relative address. addr2line emits two
// output lines per input address ("function" then "file:line") when given
// -f, so stdout is read four lines per frame in command-line order: the
// absolute pair is used unless its function is "??", in which case the
// relative pair is used instead.
func decodeLines(ctx context.Context, object string, frames []frame.Frame, idxs []int) {
	if !decoder.Available("addr2line") {
		return
	}
	args := []string{"-C", "-f", "-e", object}
	for _, i := range idxs {
		args = append(args, fmt.Sprintf("%#x", frames[i].Address), fmt.Sprintf("%#x", frames[i].AddressRel))
	}

	var out []string
	decoder.Run(ctx, "addr2line", args, func(l string) {
		out = append(out, l)
	})

	for j, i := range idxs {
		base := 4 * j
		if base+3 >= len(out) {
			break
		}
		function, fileLine := out[base], out[base+1]
		if function == "" || function == "??" {
			function, fileLine = out[base+2], out[base+3]
		}
		if function != "" && function != "??" {
			frames[i].Function = function
		}
		file, line := splitFileLine(fileLine)
		if file != "" && file != "??" {
			frames[i].Filename = file
			frames[i].Line = line
		}
	}
}

func splitFileLine(s string) (file string, line int) {
	idx := strings.LastIndexByte(s, ':')
	if idx < 0 {
		return s, 0
	}
	n, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return s, 0
	}
	return s[:idx], n
}
