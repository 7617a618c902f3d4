package frame

import (
	"bytes"
	"testing"
)

func TestEqual(t *testing.T) {
	cases := []struct {
		a, b Frame
		want bool
	}{
		{Frame{Address: 1}, Frame{Address: 1}, true},
		{Frame{Address: 1, AddressRel: 1}, Frame{Address: 2, AddressRel: 2}, false},
		{Frame{Address: 1, AddressRel: 5, Object: "a.so"}, Frame{Address: 2, AddressRel: 5, Object: "a.so"}, true},
		{Frame{Address: 1, AddressRel: 5, Object: "a.so"}, Frame{Address: 2, AddressRel: 5, Object: "b.so"}, false},
		{Frame{Address: 1, AddressRel: 5, Object: "a.so"}, Frame{Address: 2, AddressRel: 6, Object: "a.so"}, false},
	}
	for i, c := range cases {
		if got := c.a.Equal(c.b); got != c.want {
			t.Errorf("case %d: Equal() = %v, want %v", i, got, c.want)
		}
		if got := c.b.Equal(c.a); got != c.want {
			t.Errorf("case %d: Equal() not symmetric", i)
		}
	}
}

func TestPackUnpack(t *testing.T) {
	frames := []Frame{
		{},
		{Address: 0xdeadbeef, AddressRel: 0x100, Object: "main", Function: "main.main", Filename: "main.go", Line: 42},
		{Address: 1, Function: "f", FilenamePath: "dir"},
	}
	for _, want := range frames {
		var buf bytes.Buffer
		if err := want.Pack(&buf); err != nil {
			t.Fatalf("Pack: %v", err)
		}
		got, err := Unpack(&buf)
		if err != nil {
			t.Fatalf("Unpack: %v", err)
		}
		if got != want {
			t.Errorf("round-trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	f := Frame{Function: string(make([]byte, MaxFunctionLen+100))}
	f.Truncate()
	if len(f.Function) != MaxFunctionLen {
		t.Errorf("Function len = %d, want %d", len(f.Function), MaxFunctionLen)
	}
}

func TestValid(t *testing.T) {
	if !(Frame{}).Valid() {
		t.Error("zero Frame should be valid")
	}
	if (Frame{Function: "", Filename: "x.go"}).Valid() {
		t.Error("filename without function should be invalid")
	}
	if (Frame{ObjectPath: "dir"}).Valid() {
		t.Error("object path without object should be invalid")
	}
	if (Frame{Line: -1}).Valid() {
		t.Error("negative line should be invalid")
	}
}
