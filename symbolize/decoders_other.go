// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux && !darwin

package symbolize

import (
	"context"

	"github.com/sigtrace/stacktrace/frame"
)

// decodeLines has no external decoder to delegate to on this platform; the
// frames keep whatever stage 1/2 already filled in.
func decodeLines(ctx context.Context, object string, frames []frame.Frame, idxs []int) {}
