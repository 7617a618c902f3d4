// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netfabric

import "net/rpc"

// Client is a thin wrapper over *rpc.Client, kept as its own type (rather
// than using *rpc.Client directly everywhere) so Fabric's peer table has
// a place to hang a Close method that tolerates a nil connection.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to a peer's Server at addr.
func Dial(addr string) (*Client, error) {
	c, err := rpc.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{rpc: c}, nil
}

func (c *Client) Deliver(req *DeliverRequest) error {
	var resp DeliverResponse
	return c.rpc.Call("Server.Deliver", req, &resp)
}

func (c *Client) Close() error {
	if c == nil || c.rpc == nil {
		return nil
	}
	return c.rpc.Close()
}
