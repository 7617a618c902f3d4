// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package netfabric implements cluster.Fabric over net/rpc, one Server
// per rank accepting Deliver calls from its peers and a Client per peer
// connection used to place them.
package netfabric

// For regularity, each RPC method gets its own Request/Response type even
// where the payload is trivial.

type DeliverRequest struct {
	From int
	Tag  int
	Data []byte
}

type DeliverResponse struct{}

type BarrierRequest struct {
	From int
}

type BarrierResponse struct{}
