package multistack

import (
	"fmt"
	"io"

	"github.com/sigtrace/stacktrace/arch"
	"github.com/sigtrace/stacktrace/frame"
)

// maxChildren bounds how many children Unpack will trust a single node to
// claim, guarding against a corrupt or hostile peer inflating an
// allocation from a four-byte count.
const maxChildren = 1 << 20

// Pack writes n and its whole subtree to w as
// N:int32, frame, Nchildren:int32, child...child (depth-first, matching
// Walk's order). This is the wire format used for cluster replies.
func (n *Node) Pack(w io.Writer) error {
	var hdr [8]byte
	arch.PutUint32(hdr[0:4], uint32(n.N))
	arch.PutUint32(hdr[4:8], uint32(len(n.Children)))
	if _, err := w.Write(hdr[0:4]); err != nil {
		return err
	}
	if err := n.Stack.Pack(w); err != nil {
		return err
	}
	if _, err := w.Write(hdr[4:8]); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.Pack(w); err != nil {
			return err
		}
	}
	return nil
}

// Unpack reads the encoding written by Pack.
func Unpack(r io.Reader) (*Node, error) {
	var nbuf [4]byte
	if _, err := io.ReadFull(r, nbuf[:]); err != nil {
		return nil, err
	}
	n := &Node{N: int(arch.Uint32(nbuf[:]))}

	f, err := frame.Unpack(r)
	if err != nil {
		return nil, err
	}
	n.Stack = f

	var cbuf [4]byte
	if _, err := io.ReadFull(r, cbuf[:]); err != nil {
		return nil, err
	}
	nchildren := arch.Uint32(cbuf[:])
	if nchildren > maxChildren {
		return nil, fmt.Errorf("multistack: child count %d exceeds limit", nchildren)
	}
	n.Children = make([]*Node, 0, nchildren)
	for i := uint32(0); i < nchildren; i++ {
		child, err := Unpack(r)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}
