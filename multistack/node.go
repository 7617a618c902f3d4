// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package multistack implements the prefix-tree aggregation of many linear
// call stacks into one tree keyed by frame identity, plus its two wire
// forms: a packed binary encoding (for the cluster reply path) and a
// human-readable rendered text form with a lenient parser that inverts it.
package multistack

import "github.com/sigtrace/stacktrace/frame"

// Node is one node of the multi-stack prefix tree. Children are callees:
// the root (whose Stack is the zero Frame) has one child per distinct
// outermost frame, and the tree's leaves are the innermost frames of
// whatever linear stacks fed it.
//
// Invariant: no two entries of Children have an equal Stack (frame.Equal).
// Children are kept in first-observation order.
type Node struct {
	N        int
	Stack    frame.Frame
	Children []*Node
}

// New builds a tree from a single linear stack, innermost frame first
// (stack[0] is the innermost/leaf frame the way runtime.Callers returns
// them). The returned root's Stack is the zero Frame; the outermost frame,
// stack[len(stack)-1], becomes the root's one child assuming stack is
// non-empty, and stack[0] ends up as the leaf.
func New(stack []frame.Frame) *Node {
	root := &Node{N: 1}
	root.add(stack)
	return root
}

// Add merges one more linear stack into the tree rooted at n, incrementing
// n.N and recursing into (or creating) the child chain for stack.
func (n *Node) Add(stack []frame.Frame) {
	n.N++
	n.add(stack)
}

// add installs stack (innermost-first) as descendants of n without
// touching n.N; New and Add both delegate to it after handling the root's
// own count.
func (n *Node) add(stack []frame.Frame) {
	cur := n
	for i := len(stack) - 1; i >= 0; i-- {
		f := stack[i]
		var child *Node
		for _, c := range cur.Children {
			if c.Stack.Equal(f) {
				child = c
				break
			}
		}
		if child == nil {
			child = &Node{Stack: f}
			cur.Children = append(cur.Children, child)
		}
		child.N++
		cur = child
	}
}

// MergeAdd folds other into n: n.N += other.N, and every child of other is
// merged into a matching child of n (by frame.Equal) or appended as a
// fresh subtree copy. Merge is commutative and equality-preserving, which
// is what lets cluster reply arrivals be folded in any order (spec §5).
func (n *Node) MergeAdd(other *Node) {
	if other == nil {
		return
	}
	n.N += other.N
	for _, oc := range other.Children {
		var mine *Node
		for _, c := range n.Children {
			if c.Stack.Equal(oc.Stack) {
				mine = c
				break
			}
		}
		if mine == nil {
			mine = oc.clone()
			n.Children = append(n.Children, mine)
			continue
		}
		mine.MergeAdd(oc)
	}
}

func (n *Node) clone() *Node {
	c := &Node{N: n.N, Stack: n.Stack}
	for _, ch := range n.Children {
		c.Children = append(c.Children, ch.clone())
	}
	return c
}

// Walk calls visit for n and every descendant, depth-first, children in
// insertion order, passing the current depth (root is depth 0).
func (n *Node) Walk(visit func(node *Node, depth int)) {
	n.walk(0, visit)
}

func (n *Node) walk(depth int, visit func(*Node, int)) {
	visit(n, depth)
	for _, c := range n.Children {
		c.walk(depth+1, visit)
	}
}

// Leaf pairs a reconstructed linear stack (innermost-first, the order New
// takes) with the count of original stacks that produced it.
type Leaf struct {
	Stack []frame.Frame
	N     int
}

// Leaves returns the full linear stack leading to every tree leaf, i.e. one
// entry per leaf, with the leaf's multiplicity.
func (n *Node) Leaves() []Leaf {
	var out []Leaf
	n.leaves(nil, true, &out)
	return out
}

func (n *Node) leaves(prefix []frame.Frame, isRoot bool, out *[]Leaf) {
	p := prefix
	if !isRoot {
		p = append(append([]frame.Frame{}, prefix...), n.Stack)
	}
	if len(n.Children) == 0 {
		rev := make([]frame.Frame, len(p))
		for i, f := range p {
			rev[len(p)-1-i] = f
		}
		*out = append(*out, Leaf{Stack: rev, N: n.N})
		return
	}
	for _, c := range n.Children {
		c.leaves(p, false, out)
	}
}
