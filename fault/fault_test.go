package fault

import (
	"strings"
	"syscall"
	"testing"

	"github.com/sigtrace/stacktrace/cluster"
	"github.com/sigtrace/stacktrace/multistack"
)

func TestDefaultCatchSignalsExcludesReserved(t *testing.T) {
	excluded := defaultExcluded()
	for _, s := range DefaultCatchSignals() {
		if excluded[s] {
			t.Errorf("DefaultCatchSignals() includes excluded signal %v", s)
		}
	}
	if !excluded[syscall.SIGKILL] || !excluded[syscall.SIGSTOP] {
		t.Error("defaultExcluded() must always exclude SIGKILL and SIGSTOP")
	}
}

func TestAbortErrorWhat(t *testing.T) {
	err := &AbortError{
		Type:      TypeAbort,
		Source:    SourceLocation{File: "main.go", Line: 10},
		Message:   "boom",
		BytesUsed: 42,
		Stack:     &multistack.Node{},
	}
	got := err.Error()
	for _, want := range []string{"Program abort called", "main.go", "line 10", "boom", "Bytes used = 42"} {
		if !strings.Contains(got, want) {
			t.Errorf("AbortError.Error() missing %q, got:\n%s", want, got)
		}
	}
}

func TestAbortPanicsWithAbortError(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(*AbortError)
		if !ok {
			t.Fatalf("Abort panicked with %T, want *AbortError", r)
		}
		if err.Type != TypeAbort || err.Message != "kaboom" {
			t.Errorf("unexpected AbortError: %+v", err)
		}
	}()
	SetDefaultStackType(StackSelf)
	Abort("kaboom", CallerLocation())
}

func TestRecoverRePanicsWithWrappedError(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(*AbortError)
		if !ok {
			t.Fatalf("re-panic value = %T, want *AbortError", r)
		}
		if err.Type != TypeException || err.Message != "plain string panic" {
			t.Errorf("unexpected AbortError: %+v", err)
		}
	}()
	func() {
		defer Recover()
		panic("plain string panic")
	}()
}

func TestSetClearErrorHandler(t *testing.T) {
	var called bool
	SetErrorHandler(func(*AbortError) { called = true }, []syscall.Signal{syscall.SIGUSR1})
	ClearErrorHandler()
	_ = called
}

// TestCaptureStackGlobalReturnsTree runs captureStack's StackGlobal branch
// on a single-rank cluster.Local fabric and checks that it yields a tree.
// GetGlobalCallStacks returns immediately there (size <= 1 short-circuits
// its fan-out), so this test does not observe which deadline the branch
// runs under.
func TestCaptureStackGlobalReturnsTree(t *testing.T) {
	SetFabric(cluster.Local{})
	defer SetFabric(cluster.Local{})
	root := captureStack(StackGlobal)
	if root == nil {
		t.Fatal("captureStack(StackGlobal) returned nil")
	}
}
