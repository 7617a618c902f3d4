package backtrace

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sigtrace/stacktrace/registry"
)

func TestSelfReturnsNonEmpty(t *testing.T) {
	pcs := Self()
	if len(pcs) == 0 {
		t.Fatal("Self() returned no frames")
	}
}

func TestForeignCapturesSleepingGoroutine(t *testing.T) {
	registry.Clear()
	defer registry.Clear()

	ready := make(chan registry.Handle)
	release := make(chan struct{})
	go func() {
		h := registry.Register()
		defer registry.Unregister(h)
		ready <- h
		time.Sleep(500 * time.Millisecond)
		<-release
	}()
	h := <-ready
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), DefaultForeignDeadline)
	defer cancel()
	frames := Foreign(ctx, h)
	if len(frames) == 0 {
		t.Fatal("Foreign() returned no frames for a live, sleeping goroutine")
	}
	var found bool
	for _, f := range frames {
		if strings.Contains(strings.ToLower(f.Function), "sleep") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a frame mentioning sleep, got %+v", frames)
	}
}

func TestForeignUnknownHandleReturnsEmpty(t *testing.T) {
	registry.Clear()
	defer registry.Clear()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	frames := Foreign(ctx, registry.Handle(999999999))
	if frames != nil {
		t.Errorf("Foreign(unknown) = %v, want nil", frames)
	}
}

func TestAllReturnsOnePerRegistrant(t *testing.T) {
	registry.Clear()
	defer registry.Clear()

	const n = 3
	ready := make(chan struct{}, n)
	release := make(chan struct{})
	for i := 0; i < n; i++ {
		go func() {
			h := registry.Register()
			defer registry.Unregister(h)
			ready <- struct{}{}
			<-release
		}()
	}
	for i := 0; i < n; i++ {
		<-ready
	}
	defer close(release)

	time.Sleep(20 * time.Millisecond) // let registrations land
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	all := All(ctx)
	if len(all) != registry.Len() {
		t.Fatalf("All() returned %d entries, registry has %d", len(all), registry.Len())
	}
}

func TestAddresses(t *testing.T) {
	pcs := []uintptr{1, 2, 3}
	got := Addresses(pcs)
	want := []uint64{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Addresses(%v) = %v, want %v", pcs, got, want)
		}
	}
}
