package multistack

import (
	"fmt"
	"io"
	"strings"
)

type widths struct {
	addr, obj, fn int
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Render writes one line per frame to w, depth-first, children in
// insertion order, in the format:
//
//	<depth-indent>[<N>] 0x<address>:  <object>  <function>  <filename>:<line>
//
// Optional fields are omitted when empty; ":<line>" is omitted when
// line == 0. The address/object/function columns are padded to widths
// computed across the whole tree, clamped to [4,16]/[1,20]/[1,40]
// respectively, so sibling lines line up. The root node itself (whose
// Stack is always the zero Frame) is never printed; rendering starts at
// its children.
func (n *Node) Render(w io.Writer) error {
	wd := n.computeWidths()
	return n.renderChildren(w, nil, wd)
}

func (n *Node) computeWidths() widths {
	var wd widths
	n.Walk(func(node *Node, depth int) {
		if depth == 0 {
			return
		}
		if l := len(fmt.Sprintf("%x", node.Stack.Address)); l > wd.addr {
			wd.addr = l
		}
		if l := len(node.Stack.Object); l > wd.obj {
			wd.obj = l
		}
		if l := len(node.Stack.Function); l > wd.fn {
			wd.fn = l
		}
	})
	wd.addr = clamp(wd.addr, 4, 16)
	wd.obj = clamp(wd.obj, 1, 20)
	wd.fn = clamp(wd.fn, 1, 40)
	return wd
}

func (n *Node) renderChildren(w io.Writer, continuation []bool, wd widths) error {
	for i, c := range n.Children {
		last := i == len(n.Children)-1
		if err := c.renderNode(w, continuation, last, wd); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) renderNode(w io.Writer, continuation []bool, last bool, wd widths) error {
	var sb strings.Builder
	for _, cont := range continuation {
		if cont {
			sb.WriteString("| ")
		} else {
			sb.WriteString("  ")
		}
	}
	fmt.Fprintf(&sb, "[%d] 0x%0*x:", n.N, wd.addr, n.Stack.Address)
	if n.Stack.Object != "" {
		fmt.Fprintf(&sb, "  %-*s", wd.obj, n.Stack.Object)
	}
	if n.Stack.Function != "" {
		fmt.Fprintf(&sb, "  %-*s", wd.fn, n.Stack.Function)
	}
	if n.Stack.Filename != "" {
		if n.Stack.Line != 0 {
			fmt.Fprintf(&sb, "  %s:%d", n.Stack.Filename, n.Stack.Line)
		} else {
			fmt.Fprintf(&sb, "  %s", n.Stack.Filename)
		}
	}
	sb.WriteString("\n")
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}

	childContinuation := append(append([]bool{}, continuation...), !last)
	return n.renderChildren(w, childContinuation, wd)
}
