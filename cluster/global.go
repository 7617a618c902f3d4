// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cluster

import (
	"bytes"
	"context"
	"math/rand"
	"time"

	"github.com/sigtrace/stacktrace/multistack"
)

// GetGlobalCallStacks implements the requester side of the global
// backtrace protocol: fan out a request tagged with a fresh reply tag to
// every other rank, capture this process's own multi-stack locally, and
// fold in replies as they arrive until every peer has answered or the
// deadline (10s + 20ms·size) elapses. A requester always returns in
// bounded time; slow or dead peers simply don't contribute.
func GetGlobalCallStacks(ctx context.Context, fabric Fabric) (*multistack.Node, error) {
	size := fabric.Size()
	root := localMultistack(ctx)
	if size <= 1 {
		return root, nil
	}

	tag := 2 + rand.Intn(0x7FFF-2+1)
	tagBytes := []byte{byte(tag), byte(tag >> 8), byte(tag >> 16), byte(tag >> 24)}

	rank := fabric.Rank()
	for dst := 0; dst < size; dst++ {
		if dst == rank {
			continue
		}
		fabric.Send(dst, ReqTag, tagBytes)
	}

	deadline := time.Now().Add(10*time.Second + 20*time.Millisecond*time.Duration(size))
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	expected := size - 1
	finished := 0
	for finished < expected && time.Now().Before(deadline) {
		ok, from, _ := fabric.IProbe(-1, tag)
		if !ok {
			select {
			case <-ctx.Done():
				return root, nil
			case <-time.After(time.Millisecond):
			}
			continue
		}
		data, err := fabric.Recv(from, tag)
		if err != nil {
			finished++
			continue
		}
		peer, err := multistack.Unpack(bytes.NewReader(data))
		if err == nil {
			root.MergeAdd(peer)
		}
		finished++
	}
	return root, nil
}
