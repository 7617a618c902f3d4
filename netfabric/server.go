// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netfabric

import "sync"

type message struct {
	from int
	data []byte
}

// Server holds this rank's inbox: messages peers have delivered, grouped
// by tag, awaiting a local IProbe/Recv. Its exported methods are the
// net/rpc surface peers call into, guarded by a single mutex the way the
// teacher's program/server.Server guards its breakpoint and file tables.
type Server struct {
	mu       sync.Mutex
	inbox    map[int][]message
	barriers map[int]int
	barrierC chan struct{}
	size     int
}

// NewServer creates a Server expecting size-1 peers.
func NewServer(size int) *Server {
	return &Server{
		inbox:    map[int][]message{},
		barriers: map[int]int{},
		size:     size,
	}
}

// Deliver is the RPC method a peer's Client.Send calls to place a
// message into this rank's inbox.
func (s *Server) Deliver(req *DeliverRequest, resp *DeliverResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbox[req.Tag] = append(s.inbox[req.Tag], message{from: req.From, data: req.Data})
	return nil
}

// deliverLocal is the loopback path Send takes when the destination is
// this same rank; it bypasses RPC entirely.
func (s *Server) deliverLocal(from, tag int, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbox[tag] = append(s.inbox[tag], message{from: from, data: data})
}

// probe reports whether a message tagged tag (from src, or any rank if
// src < 0) is waiting, without consuming it.
func (s *Server) probe(src, tag int) (ok bool, from int, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.inbox[tag] {
		if src < 0 || m.from == src {
			return true, m.from, len(m.data)
		}
	}
	return false, 0, 0
}

// recv pops and returns the first matching message tagged tag.
func (s *Server) recv(src, tag int) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.inbox[tag]
	for i, m := range msgs {
		if src < 0 || m.from == src {
			s.inbox[tag] = append(msgs[:i:i], msgs[i+1:]...)
			return m.data, true
		}
	}
	return nil, false
}
