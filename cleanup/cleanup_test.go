package cleanup

import (
	"testing"

	"github.com/sigtrace/stacktrace/frame"
	"github.com/sigtrace/stacktrace/multistack"
)

func TestCanonicalizeFunctionName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"foo< bar> >", "foo<bar>>"},
		{"std::chrono::duration<long, std::ratio<1l, 1000000000l>>", "std::chrono::nanoseconds"},
		{"std::basic_string<char, std::char_traits<char>, std::allocator<char>>", "std::string"},
		{"std::__cxx11::basic_string<char, std::char_traits<char>, std::allocator<char>>", "std::string"},
		{"std::vector<int, std::allocator<int>>", "std::vector<int>"},
		{"std::__1::vector<int>", "std::vector<int>"},
	}
	for _, c := range cases {
		got := CanonicalizeFunctionName(c.in)
		if got != c.want {
			t.Errorf("CanonicalizeFunctionName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFilterTreeSplicesSingleChild(t *testing.T) {
	root := &multistack.Node{N: 1}
	shim := &multistack.Node{N: 1, Stack: frame.Frame{Function: "std::_Bind_simple<int>"}}
	main := &multistack.Node{N: 1, Stack: frame.Frame{Function: "main"}}
	shim.Children = []*multistack.Node{main}
	root.Children = []*multistack.Node{shim}

	out := FilterTree(root)
	if len(out.Children) != 1 || out.Children[0].Stack.Function != "main" {
		t.Fatalf("expected shim spliced out in favor of main, got %+v", out.Children)
	}
}

func TestFilterTreeDropsEmptyLeaf(t *testing.T) {
	root := &multistack.Node{N: 1}
	empty := &multistack.Node{N: 1, Stack: frame.Frame{}}
	root.Children = []*multistack.Node{empty}

	out := FilterTree(root)
	if len(out.Children) != 0 {
		t.Fatalf("expected empty-named leaf dropped, got %+v", out.Children)
	}
}

func TestFilterTreeKeepsBranchPoint(t *testing.T) {
	root := &multistack.Node{N: 2}
	a := &multistack.Node{N: 1, Stack: frame.Frame{Address: 1, AddressRel: 1, Function: "a"}}
	b := &multistack.Node{N: 1, Stack: frame.Frame{Address: 2, AddressRel: 2, Function: "b"}}
	shim := &multistack.Node{N: 2, Stack: frame.Frame{Function: "std::_Bind_simple<int>"}}
	shim.Children = []*multistack.Node{a, b}
	root.Children = []*multistack.Node{shim}

	out := FilterTree(root)
	if len(out.Children) != 1 || out.Children[0].Stack.Function != "std::_Bind_simple<int>" {
		t.Fatalf("expected multi-child removed node kept as branch point, got %+v", out.Children)
	}
}

func TestFilterTreeCoalescesSiblings(t *testing.T) {
	root := &multistack.Node{N: 2}
	shim1 := &multistack.Node{N: 1, Stack: frame.Frame{Function: "std::_Bind_simple<int>"}}
	shim2 := &multistack.Node{N: 1, Stack: frame.Frame{Function: "std::__invoke_impl<int>"}}
	main1 := &multistack.Node{N: 1, Stack: frame.Frame{Function: "main"}}
	main2 := &multistack.Node{N: 1, Stack: frame.Frame{Function: "main"}}
	shim1.Children = []*multistack.Node{main1}
	shim2.Children = []*multistack.Node{main2}
	root.Children = []*multistack.Node{shim1, shim2}

	out := FilterTree(root)
	if len(out.Children) != 1 {
		t.Fatalf("expected both shims spliced then coalesced into one main, got %d children", len(out.Children))
	}
	if out.Children[0].N != 2 {
		t.Errorf("coalesced node N = %d, want 2", out.Children[0].N)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	root := multistack.New([]frame.Frame{{Function: "main"}, {Function: "std::_Bind_simple<int>"}})
	CanonicalizeTree(root)
	once := FilterTree(root)

	again := FilterTree(once)
	var countOnce, countAgain int
	once.Walk(func(*multistack.Node, int) { countOnce++ })
	again.Walk(func(*multistack.Node, int) { countAgain++ })
	if countOnce != countAgain {
		t.Errorf("FilterTree not idempotent: %d nodes then %d", countOnce, countAgain)
	}
}

func TestCanonicalizeFunctionNameOnDecodedStack(t *testing.T) {
	// A frame shaped exactly like addr2line -C output: real "::"
	// separators, no pre-mangled "-" spelling.
	fn := "void std::this_thread::sleep_for<long, std::ratio<1l, 1000000000l>>(std::chrono::duration<long, std::ratio<1l, 1000000000l>> const&)"
	got := CanonicalizeFunctionName(fn)
	want := "void std::this_thread::sleep_for<long, std::nano>(std::chrono::nanoseconds const&)"
	if got != want {
		t.Errorf("CanonicalizeFunctionName(%q) = %q, want %q", fn, got, want)
	}
}
