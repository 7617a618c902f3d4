package netfabric

import (
	"testing"
	"time"
)

func twoRankFabric(t *testing.T) (*Fabric, *Fabric) {
	t.Helper()
	a, err := Listen(0, 2, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen(rank 0): %v", err)
	}
	b, err := Listen(1, 2, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen(rank 1): %v", err)
	}
	if err := a.Connect(1, b.listener.Addr().String()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := b.Connect(0, a.listener.Addr().String()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return a, b
}

func TestSendRecv(t *testing.T) {
	a, b := twoRankFabric(t)
	defer a.Free()
	defer b.Free()

	if err := a.Send(1, 5, []byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ok, from, _ := b.IProbe(0, 5); ok {
			data, err := b.Recv(from, 5)
			if err != nil {
				t.Fatalf("Recv: %v", err)
			}
			if string(data) != "hello" {
				t.Fatalf("Recv = %q, want %q", data, "hello")
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for delivery")
}

func TestBroadcastFromRoot(t *testing.T) {
	a, b := twoRankFabric(t)
	defer a.Free()
	defer b.Free()

	done := make(chan []byte)
	go func() { done <- b.Broadcast(0, nil) }()
	got := a.Broadcast(0, []byte("payload"))
	if string(got) != "payload" {
		t.Fatalf("root Broadcast = %q, want %q", got, "payload")
	}
	select {
	case gotB := <-done:
		if string(gotB) != "payload" {
			t.Fatalf("peer Broadcast = %q, want %q", gotB, "payload")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("peer never received broadcast")
	}
}
