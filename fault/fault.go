// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fault intercepts fatal program errors — explicit aborts, caught
// panics, and the signals a process doesn't usually survive — and renders
// them as an AbortError carrying a full stack trace.
//
// Go has no std::terminate hook and no portable way to run a handler
// synchronously on the thread that raised a signal; os/signal delivers
// signals to an ordinary goroutine instead, and a panic is only
// interceptable by a recover() in a deferred call further up the same
// goroutine's stack. fault.Recover, meant to be deferred once near the
// top of main, stands in for a terminate hook; SetErrorHandler's signal
// half needs no such stand-in, since os/signal.Notify really does
// deliver an asynchronous per-signal notification.
package fault

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/sigtrace/stacktrace/backtrace"
	"github.com/sigtrace/stacktrace/cleanup"
	"github.com/sigtrace/stacktrace/cluster"
	"github.com/sigtrace/stacktrace/frame"
	"github.com/sigtrace/stacktrace/multistack"
	"github.com/sigtrace/stacktrace/symbolize"
)

// Type classifies how an AbortError came to exist.
type Type int

const (
	TypeAbort Type = iota
	TypeSignal
	TypeException
	TypeMPI
	TypeUnknown
)

// StackType selects the scope an AbortError's stack was captured with.
type StackType int

const (
	// StackSelf captures only the calling goroutine.
	StackSelf StackType = iota
	// StackAll captures every registered goroutine in this process.
	StackAll
	// StackGlobal captures across every rank of the active cluster.Fabric.
	StackGlobal
)

// SourceLocation pins an AbortError to the call site that raised it.
type SourceLocation struct {
	File string
	Line int
}

// AbortError is the error type this package's entry points raise: a
// classified fatal condition carrying the message, where it happened,
// and the (already cleaned-up) stack trace requested at the time.
type AbortError struct {
	Type      Type
	Signal    syscall.Signal
	Source    SourceLocation
	Message   string
	StackType StackType
	Stack     *multistack.Node
	BytesUsed uint64
}

func (e *AbortError) Error() string {
	return e.what()
}

func (e *AbortError) what() string {
	var heading string
	switch e.Type {
	case TypeAbort:
		heading = "Program abort called"
	case TypeSignal:
		heading = fmt.Sprintf("Unhandled signal (%d) caught", e.Signal)
	case TypeException:
		heading = "Unhandled exception caught"
	case TypeMPI:
		heading = "Error calling MPI routine"
	default:
		heading = "Unknown error called"
	}
	loc := ""
	if e.Source.File != "" {
		loc = fmt.Sprintf(" [ in file '%s' at line %d ]", e.Source.File, e.Source.Line)
	}
	stackText := ""
	if e.Stack != nil {
		var buf strings.Builder
		e.Stack.Render(&buf)
		stackText = buf.String()
	}
	return fmt.Sprintf("%s%s:\n   %s\nBytes used = %d\nStack Trace:\n%s",
		heading, loc, e.Message, e.BytesUsed, stackText)
}

// Handler is invoked with a populated AbortError whenever the installed
// signal set fires or Recover observes a panic.
type Handler func(*AbortError)

var (
	mu              sync.Mutex
	handler         Handler
	stopNotify      func()
	defaultStack    = StackGlobal
	terminateMu     sync.Mutex
	fabric          cluster.Fabric = cluster.Local{}
)

// defaultExcluded are the signals set_error_handler never catches: the
// ones that can't be caught at all (KILL, STOP), the ones that are
// ordinarily benign (WINCH, CONT, CHLD), the ones better left to default
// disposition (ALRM, VTALRM, PROF), and the real-time signal this module
// would otherwise reserve for foreign-goroutine rendezvous in the native
// implementation this one replaces (kept excluded for parity even though
// this port no longer uses a real-time signal itself).
func defaultExcluded() map[syscall.Signal]bool {
	return map[syscall.Signal]bool{
		syscall.SIGKILL:  true,
		syscall.SIGSTOP:  true,
		syscall.SIGWINCH: true,
		syscall.SIGCONT:  true,
		syscall.SIGCHLD:  true,
		syscall.SIGALRM:  true,
		syscall.SIGVTALRM: true,
		syscall.SIGPROF:  true,
		rendezvousSignal(): true,
	}
}

// DefaultCatchSignals returns the signal set SetErrorHandler installs
// when called with a nil signal list: every standard fatal POSIX signal
// except the excluded set above.
func DefaultCatchSignals() []syscall.Signal {
	candidates := []syscall.Signal{
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGILL,
		syscall.SIGTRAP, syscall.SIGABRT, syscall.SIGBUS, syscall.SIGFPE,
		syscall.SIGSEGV, syscall.SIGPIPE, syscall.SIGTERM, syscall.SIGUSR1,
		syscall.SIGUSR2,
	}
	excluded := defaultExcluded()
	out := make([]syscall.Signal, 0, len(candidates))
	for _, s := range candidates {
		if !excluded[s] {
			out = append(out, s)
		}
	}
	return out
}

// SetErrorHandler installs h as the handler for every signal in signals
// (DefaultCatchSignals() if nil). Any previously installed handler and
// signal set is replaced.
func SetErrorHandler(h Handler, signals []syscall.Signal) {
	mu.Lock()
	defer mu.Unlock()
	if stopNotify != nil {
		stopNotify()
		stopNotify = nil
	}
	handler = h
	if signals == nil {
		signals = DefaultCatchSignals()
	}
	osSignals := make([]os.Signal, len(signals))
	for i, s := range signals {
		osSignals[i] = s
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, osSignals...)
	stop := make(chan struct{})
	stopNotify = func() {
		signal.Stop(ch)
		close(stop)
	}
	go func() {
		for {
			select {
			case sig, ok := <-ch:
				if !ok {
					return
				}
				if s, ok := sig.(syscall.Signal); ok {
					deliverSignal(s)
				}
			case <-stop:
				return
			}
		}
	}()
}

// ClearErrorHandler restores default signal disposition and forgets the
// installed handler.
func ClearErrorHandler() {
	mu.Lock()
	defer mu.Unlock()
	if stopNotify != nil {
		stopNotify()
		stopNotify = nil
	}
	handler = nil
}

// SetDefaultStackType changes the scope Abort and the signal/panic
// handlers capture when none is specified explicitly.
func SetDefaultStackType(t StackType) {
	mu.Lock()
	defer mu.Unlock()
	defaultStack = t
}

// SetFabric installs the cluster.Fabric used for StackGlobal captures and
// cluster-wide abort propagation. The default is cluster.Local{}.
func SetFabric(f cluster.Fabric) {
	mu.Lock()
	defer mu.Unlock()
	fabric = f
}

func deliverSignal(sig syscall.Signal) {
	terminateMu.Lock()
	defer terminateMu.Unlock()
	h := currentHandler()
	if h == nil {
		return
	}
	err := &AbortError{
		Type:      TypeSignal,
		Signal:    sig,
		Message:   sig.String(),
		StackType: currentStackType(),
		Stack:     captureStack(currentStackType()),
	}
	h(err)
}

func currentHandler() Handler {
	mu.Lock()
	defer mu.Unlock()
	return handler
}

func currentStackType() StackType {
	mu.Lock()
	defer mu.Unlock()
	return defaultStack
}

func currentFabric() cluster.Fabric {
	mu.Lock()
	defer mu.Unlock()
	return fabric
}

// captureStack builds and cleans up a multi-stack of the requested scope.
//
// StackSelf and StackAll are bounded by backtrace.DefaultForeignDeadline,
// since they only ever wait on this process's own runtime. StackGlobal
// waits on remote peers instead, so it runs under context.Background():
// cluster.GetGlobalCallStacks already enforces its own per-peer budget
// (10s plus 20ms per rank), and wrapping it in the 150ms foreign-goroutine
// deadline here would cut every multi-rank capture off long before a
// single peer could reply.
func captureStack(t StackType) *multistack.Node {
	var root *multistack.Node
	switch t {
	case StackSelf:
		ctx, cancel := context.WithTimeout(context.Background(), backtrace.DefaultForeignDeadline)
		defer cancel()
		root = multistack.New(symbolizeSelf(ctx))
	case StackGlobal:
		node, err := cluster.GetGlobalCallStacks(context.Background(), currentFabric())
		if err != nil || node == nil {
			root = &multistack.Node{}
		} else {
			root = node
		}
	default: // StackAll
		ctx, cancel := context.WithTimeout(context.Background(), backtrace.DefaultForeignDeadline)
		defer cancel()
		root = nil
		for _, stack := range backtrace.All(ctx) {
			if len(stack) == 0 {
				continue
			}
			if root == nil {
				root = multistack.New(stack)
			} else {
				root.Add(stack)
			}
		}
		if root == nil {
			root = &multistack.Node{}
		}
	}
	cleanup.CanonicalizeTree(root)
	cleanup.FilterTree(root)
	return root
}

func symbolizeSelf(ctx context.Context) []frame.Frame {
	pcs := backtrace.Self()
	frames, _ := (symbolize.Symbolicator{}).Resolve(ctx, backtrace.Addresses(pcs))
	return frames
}
