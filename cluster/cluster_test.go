package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/sigtrace/stacktrace/registry"
)

func TestLocalFabric(t *testing.T) {
	var f Fabric = Local{}
	if f.Rank() != 0 || f.Size() != 1 {
		t.Fatalf("Local{} rank/size = %d/%d, want 0/1", f.Rank(), f.Size())
	}
	if ok, _, _ := f.IProbe(-1, 1); ok {
		t.Error("Local{}.IProbe() = true, want false")
	}
	if got := f.Broadcast(0, []byte("x")); string(got) != "x" {
		t.Errorf("Local{}.Broadcast() = %q, want %q", got, "x")
	}
}

func TestGetGlobalCallStacksLocalFallback(t *testing.T) {
	registry.Clear()
	defer registry.Clear()

	done := make(chan struct{})
	release := make(chan struct{})
	go func() {
		h := registry.Register()
		defer registry.Unregister(h)
		close(done)
		<-release
	}()
	<-done
	defer close(release)
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	tree, err := GetGlobalCallStacks(ctx, Local{})
	if err != nil {
		t.Fatalf("GetGlobalCallStacks: %v", err)
	}
	if tree.N == 0 {
		t.Error("expected a non-empty local capture with one registered goroutine")
	}
}

func TestMonitorStartStopOnLocalFabric(t *testing.T) {
	registry.Clear()
	defer registry.Clear()

	f := Local{}
	m := StartMonitor(f)
	defer m.Stop()

	// Local{} never delivers an IProbe hit, so the monitor should simply
	// idle without answering anything; this just exercises start/stop.
	time.Sleep(60 * time.Millisecond)
}
