// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cluster

import (
	"bytes"
	"context"
	"sync/atomic"
	"time"

	"github.com/sigtrace/stacktrace/backtrace"
	"github.com/sigtrace/stacktrace/multistack"
)

// ReqTag is the fixed tag a requester's fan-out request arrives on.
const ReqTag = 1

// pollInterval is how often an idle monitor polls IProbe for an
// incoming request.
const pollInterval = 50 * time.Millisecond

const (
	statusRunning int32 = iota
	statusStopping
)

// Monitor is the per-process cooperative task that answers other ranks'
// global-backtrace requests. One Monitor runs per process that opts into
// cluster mode.
type Monitor struct {
	fabric Fabric
	status atomic.Int32
	done   chan struct{}
}

// StartMonitor launches the monitor loop and returns immediately. Captures
// are read from the registry the same way a local All() call would.
func StartMonitor(fabric Fabric) *Monitor {
	m := &Monitor{fabric: fabric, done: make(chan struct{})}
	go m.run()
	return m
}

// Stop requests the monitor to exit and blocks until it has.
func (m *Monitor) Stop() {
	m.status.Store(statusStopping)
	<-m.done
}

func (m *Monitor) run() {
	defer close(m.done)
	for {
		if m.status.Load() == statusStopping {
			return
		}
		ok, from, _ := m.fabric.IProbe(-1, ReqTag)
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		m.answer(from)
	}
}

// answer implements the ANSWERING state: read the requester's reply tag,
// build this process's local multi-stack, pack it, and send it back.
func (m *Monitor) answer(from int) {
	reqBytes, err := m.fabric.Recv(from, ReqTag)
	if err != nil || len(reqBytes) < 4 {
		return
	}
	tag := int(reqBytes[0]) | int(reqBytes[1])<<8 | int(reqBytes[2])<<16 | int(reqBytes[3])<<24

	ctx, cancel := context.WithTimeout(context.Background(), backtrace.DefaultForeignDeadline)
	defer cancel()
	tree := localMultistack(ctx)

	var buf bytes.Buffer
	if tree.Pack(&buf) != nil {
		return
	}
	m.fabric.Send(from, tag, buf.Bytes())
}

// localMultistack captures every registered goroutine's stack and folds
// it into one multi-stack tree, the payload every monitor reply and every
// local fallback capture shares. backtrace.All already returns each
// goroutine's frames innermost-first, the order multistack.New/Add expect.
func localMultistack(ctx context.Context) *multistack.Node {
	var root *multistack.Node
	for _, stack := range backtrace.All(ctx) {
		if len(stack) == 0 {
			continue
		}
		if root == nil {
			root = multistack.New(stack)
			continue
		}
		root.Add(stack)
	}
	if root == nil {
		root = &multistack.Node{}
	}
	return root
}
