// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cluster extends foreign-goroutine capture across a group of
// cooperating processes. The message-passing fabric the protocol runs
// over — elsewhere an MPI communicator — is modeled here as the Fabric
// interface and injected, exactly as called for by the design note this
// package implements; there is no widely-used idiomatic Go MPI binding in
// the example corpus or the broader ecosystem to bind to directly, so
// this module ships its own small net/rpc-based implementation
// (package netfabric) alongside a single-process no-op (Local).
package cluster

// Fabric is the small verb set the global-backtrace protocol needs from
// its transport: point-to-point send/recv, a non-blocking probe,
// collective barrier and broadcast, and lifecycle duplicate/free.
type Fabric interface {
	// Rank returns this process's rank in [0, Size()).
	Rank() int
	// Size returns the number of ranks in the fabric.
	Size() int

	// Send delivers data to dst tagged tag. Non-blocking: it queues the
	// send and returns without waiting for the peer to receive it.
	Send(dst, tag int, data []byte) error
	// Recv returns the next message from src tagged tag, if one has
	// already arrived; callers are expected to IProbe first, per the
	// requester protocol.
	Recv(src, tag int) ([]byte, error)
	// IProbe reports whether a message tagged tag has arrived from src
	// (src < 0 meaning any rank), without consuming it.
	IProbe(src, tag int) (ok bool, from int, count int)

	// Barrier blocks until every rank has called Barrier.
	Barrier()
	// Broadcast sends data from root to every rank and returns it; every
	// rank, including root, gets the same return value.
	Broadcast(root int, data []byte) []byte

	// Duplicate returns a fabric over the same ranks with an independent
	// tag space, the way MPI_Comm_dup isolates collective calls.
	Duplicate() (Fabric, error)
	// Free releases fabric resources. Calling any other method after
	// Free is undefined.
	Free()
}

// Local is the degenerate single-process fabric: rank 0 of size 1, no
// peers to ever hear from. Cluster-aware callers that get a Local fabric
// degrade gracefully to a local all-goroutines capture — there is nothing
// a real send or probe could ever surface here.
type Local struct{}

var _ Fabric = Local{}

func (Local) Rank() int { return 0 }
func (Local) Size() int { return 1 }

func (Local) Send(dst, tag int, data []byte) error {
	return errNoPeers
}

func (Local) Recv(src, tag int) ([]byte, error) {
	return nil, errNoPeers
}

func (Local) IProbe(src, tag int) (ok bool, from int, count int) {
	return false, 0, 0
}

func (Local) Barrier() {}

func (Local) Broadcast(root int, data []byte) []byte {
	return data
}

func (Local) Duplicate() (Fabric, error) { return Local{}, nil }

func (Local) Free() {}

var errNoPeers = fabricError("cluster: no peers in a single-process fabric")

type fabricError string

func (e fabricError) Error() string { return string(e) }
