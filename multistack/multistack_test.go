package multistack

import (
	"bytes"
	"testing"

	"github.com/sigtrace/stacktrace/frame"
)

func stackA() []frame.Frame {
	// innermost first, matching runtime.Callers order.
	return []frame.Frame{
		{Address: 3, AddressRel: 3, Object: "main", Function: "main.get_call_stack", Filename: "a.go", Line: 10},
		{Address: 2, AddressRel: 2, Object: "main", Function: "main.bar", Filename: "a.go", Line: 20},
		{Address: 1, AddressRel: 1, Object: "main", Function: "main.foo", Filename: "a.go", Line: 30},
	}
}

func stackB() []frame.Frame {
	return []frame.Frame{
		{Address: 30, AddressRel: 30, Object: "main", Function: "main.sleep", Filename: "b.go", Line: 5},
		{Address: 2, AddressRel: 2, Object: "main", Function: "main.bar", Filename: "a.go", Line: 20},
		{Address: 1, AddressRel: 1, Object: "main", Function: "main.foo", Filename: "a.go", Line: 30},
	}
}

func TestAddSharesCommonPrefix(t *testing.T) {
	root := New(stackA())
	root.Add(stackB())

	if root.N != 2 {
		t.Fatalf("root.N = %d, want 2", root.N)
	}
	if len(root.Children) != 1 {
		t.Fatalf("expected a single shared outermost frame, got %d children", len(root.Children))
	}
	foo := root.Children[0]
	if foo.N != 2 || foo.Stack.Function != "main.foo" {
		t.Fatalf("unexpected foo node: %+v", foo)
	}
	if len(foo.Children) != 1 {
		t.Fatalf("expected shared bar frame, got %d children", len(foo.Children))
	}
	bar := foo.Children[0]
	if bar.N != 2 {
		t.Fatalf("bar.N = %d, want 2", bar.N)
	}
	if len(bar.Children) != 2 {
		t.Fatalf("expected two distinct leaves under bar, got %d", len(bar.Children))
	}
}

func TestMergeIdempotence(t *testing.T) {
	root := New(stackA())
	clone := root.clone()
	root.MergeAdd(clone)

	if root.N != 2 {
		t.Errorf("self-merge should double N: got %d", root.N)
	}
	if root.Children[0].N != 2 {
		t.Errorf("self-merge should double every node on the shared path: got %d", root.Children[0].N)
	}

	// merging with empty is identity.
	before := renderString(t, New(stackA()))
	empty := &Node{}
	m := New(stackA())
	m.MergeAdd(empty)
	after := renderString(t, m)
	if before != after {
		t.Errorf("merge with empty changed rendering:\n%s\nvs\n%s", before, after)
	}
}

func renderString(t *testing.T, n *Node) string {
	var buf bytes.Buffer
	if err := n.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestPackUnpackRoundTrip(t *testing.T) {
	root := New(stackA())
	root.Add(stackB())

	var buf bytes.Buffer
	if err := root.Pack(&buf); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	got, err := Unpack(&buf)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if renderString(t, got) != renderString(t, root) {
		t.Errorf("pack/unpack round trip mismatch:\ngot:\n%s\nwant:\n%s", renderString(t, got), renderString(t, root))
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	root := New(stackA())
	root.Add(stackB())

	first := renderString(t, root)

	parsed, err := Parse(bytes.NewReader([]byte(first)))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	second := renderString(t, parsed)

	if first != second {
		t.Errorf("round trip not byte-identical:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}
