// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netfabric

import (
	"fmt"
	"net"
	"net/rpc"
	"time"

	"github.com/sigtrace/stacktrace/cluster"
)

// Fabric is a real multi-process cluster.Fabric: each rank runs a Server
// accepting Deliver calls over net/rpc, and holds a Client to every peer
// it needs to send to. Broadcast and Barrier are built out of Send/Recv
// and IProbe the same way a requester would use them, since net/rpc gives
// us point-to-point calls and nothing collective.
type Fabric struct {
	rank, size int
	server     *Server
	listener   net.Listener
	peers      []*Client // peers[rank] is nil for this rank itself
}

// Listen starts this rank's Server on addr and returns a Fabric with no
// peers yet; call Connect for each peer once all ranks are listening.
func Listen(rank, size int, addr string) (*Fabric, error) {
	server := NewServer(size)
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("Server", server); err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	go rpcServer.Accept(ln)
	return &Fabric{
		rank:     rank,
		size:     size,
		server:   server,
		listener: ln,
		peers:    make([]*Client, size),
	}, nil
}

// Connect dials peer and installs it at the given rank.
func (f *Fabric) Connect(peerRank int, addr string) error {
	if peerRank == f.rank {
		return fmt.Errorf("netfabric: cannot connect to own rank %d", peerRank)
	}
	c, err := Dial(addr)
	if err != nil {
		return err
	}
	f.peers[peerRank] = c
	return nil
}

var _ cluster.Fabric = (*Fabric)(nil)

func (f *Fabric) Rank() int { return f.rank }
func (f *Fabric) Size() int { return f.size }

func (f *Fabric) Send(dst, tag int, data []byte) error {
	if dst == f.rank {
		f.server.deliverLocal(f.rank, tag, data)
		return nil
	}
	c := f.peers[dst]
	if c == nil {
		return fmt.Errorf("netfabric: no connection to rank %d", dst)
	}
	return c.Deliver(&DeliverRequest{From: f.rank, Tag: tag, Data: data})
}

func (f *Fabric) Recv(src, tag int) ([]byte, error) {
	data, ok := f.server.recv(src, tag)
	if !ok {
		return nil, fmt.Errorf("netfabric: no message tagged %d from %d", tag, src)
	}
	return data, nil
}

func (f *Fabric) IProbe(src, tag int) (ok bool, from int, count int) {
	return f.server.probe(src, tag)
}

// barrierTag is reserved for Barrier's own Send/Recv traffic, distinct
// from the [2, 0x7FFF] range GetGlobalCallStacks picks reply tags from.
const barrierTag = -1

// Barrier sends an arrival marker to every other rank and waits for one
// from each in turn; a naive O(size) implementation, adequate at the
// cluster sizes this module targets.
func (f *Fabric) Barrier() {
	for dst := 0; dst < f.size; dst++ {
		if dst != f.rank {
			f.Send(dst, barrierTag, []byte{1})
		}
	}
	remaining := map[int]bool{}
	for r := 0; r < f.size; r++ {
		if r != f.rank {
			remaining[r] = true
		}
	}
	for len(remaining) > 0 {
		for r := range remaining {
			if ok, _, _ := f.IProbe(r, barrierTag); ok {
				f.Recv(r, barrierTag)
				delete(remaining, r)
			}
		}
		if len(remaining) > 0 {
			time.Sleep(time.Millisecond)
		}
	}
}

// broadcastTag is reserved the same way barrierTag is.
const broadcastTag = -2

func (f *Fabric) Broadcast(root int, data []byte) []byte {
	if f.rank == root {
		for dst := 0; dst < f.size; dst++ {
			if dst != f.rank {
				f.Send(dst, broadcastTag, data)
			}
		}
		return data
	}
	for {
		if ok, from, _ := f.IProbe(root, broadcastTag); ok {
			got, err := f.Recv(from, broadcastTag)
			if err == nil {
				return got
			}
		}
		time.Sleep(time.Millisecond)
	}
}

// Duplicate returns f itself: this implementation has no separate tag
// namespace to allocate since every collective already uses a reserved
// tag outside the requester's [2, 0x7FFF] range.
func (f *Fabric) Duplicate() (cluster.Fabric, error) { return f, nil }

func (f *Fabric) Free() {
	for _, c := range f.peers {
		c.Close()
	}
	f.listener.Close()
}
