package cleanup

import (
	"strings"

	"github.com/sigtrace/stacktrace/multistack"
)

// removalRule decides whether a frame is intrinsically uninteresting and
// should be removed from a rendered multi-stack. Rules are a whitelist:
// a frame survives unless some rule claims it.
type removalRule func(file, function string) bool

var removalRules = []removalRule{
	isInternalCaptureShim,
	isLibcStartup,
	isThreadingShim,
	isAllocatorInternal,
	isEmptyFrame,
}

func isInternalCaptureShim(file, function string) bool {
	return strings.HasSuffix(file, "StackTrace.cpp") && strings.Contains(function, "backtrace_thread")
}

func isLibcStartup(file, function string) bool {
	switch function {
	case "_start", "__libc_start_main", "__libc_csu_init", "__libc_csu_fini":
		return true
	}
	return strings.HasPrefix(function, "__libc_start")
}

func isThreadingShim(file, function string) bool {
	needles := []string{
		"std::condition_variable::__wait_until_impl",
		"std::this_thread::__sleep_for(",
		"std::_Function_handler<",
		"std::_Bind_simple<",
		"_M_invoke",
		"std::thread::_Impl<",
		"std::thread::_Invoker<",
		"std::__invoke_impl",
		"std::__invoke_result",
		"pthread_cond_wait",
		"pthread_cond_timedwait",
	}
	for _, n := range needles {
		if strings.Contains(function, n) {
			return true
		}
	}
	return false
}

func isAllocatorInternal(file, function string) bool {
	return strings.Contains(function, "std::allocator") || strings.Contains(function, "__gnu_cxx::new_allocator")
}

func isEmptyFrame(file, function string) bool {
	return function == ""
}

// shouldRemove reports whether any removal rule claims the frame described
// by file/function.
func shouldRemove(file, function string) bool {
	for _, r := range removalRules {
		if r(file, function) {
			return true
		}
	}
	return false
}

// CanonicalizeTree rewrites every node's function name in place via
// CanonicalizeFunctionName.
func CanonicalizeTree(root *multistack.Node) {
	root.Walk(func(n *multistack.Node, _ int) {
		n.Stack.Function = CanonicalizeFunctionName(n.Stack.Function)
	})
}

// FilterTree applies the frame-filter pass to root and returns the
// (possibly different) root of the filtered tree: a removed leaf is
// deleted outright, a removed node with exactly one surviving child is
// spliced out in its child's favor, and a removed node with multiple
// children keeps its frame since removal there would lose information.
// Recursion is bottom-up, and a final sibling-coalescing pass merges
// children left frame-equal by the splicing.
func FilterTree(root *multistack.Node) *multistack.Node {
	root.Children = filterChildren(root.Children)
	return root
}

func filterChildren(children []*multistack.Node) []*multistack.Node {
	var kept []*multistack.Node
	for _, c := range children {
		c.Children = filterChildren(c.Children)
		if !shouldRemove(c.Stack.Filename, c.Stack.Function) {
			kept = append(kept, c)
			continue
		}
		switch len(c.Children) {
		case 0:
			// Removed leaf: drop it entirely.
		case 1:
			kept = append(kept, c.Children[0])
		default:
			// Ambiguous how to attribute c.N across multiple children if we
			// splice; keep the frame rather than lose the branch point.
			kept = append(kept, c)
		}
	}
	return coalesceSiblings(kept)
}

// coalesceSiblings merges adjacent-or-not siblings whose Stack became equal
// after splicing, summing N and concatenating (then re-coalescing) their
// children. First-observation order is preserved for the surviving entries.
func coalesceSiblings(children []*multistack.Node) []*multistack.Node {
	var out []*multistack.Node
	for _, c := range children {
		var match *multistack.Node
		for _, o := range out {
			if o.Stack.Equal(c.Stack) {
				match = o
				break
			}
		}
		if match == nil {
			out = append(out, c)
			continue
		}
		match.N += c.N
		match.Children = coalesceSiblings(append(match.Children, c.Children...))
	}
	return out
}
