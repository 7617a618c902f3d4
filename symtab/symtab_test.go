package symtab

import "testing"

func TestParseNmLine(t *testing.T) {
	cases := []struct {
		line string
		ok   bool
		addr uint64
	}{
		{"0000000000401000 T main.main", true, 0x401000},
		{"", false, 0},
		{"not a symbol line at all really", false, 0},
		{"ffffffff t _start", true, 0xffffffff},
	}
	for _, c := range cases {
		e, ok := parseNmLine(c.line, "exe", "/bin")
		if ok != c.ok {
			t.Errorf("parseNmLine(%q) ok = %v, want %v", c.line, ok, c.ok)
			continue
		}
		if ok && e.Address != c.addr {
			t.Errorf("parseNmLine(%q) addr = %#x, want %#x", c.line, e.Address, c.addr)
		}
	}
}

func TestLookupObjectBinarySearch(t *testing.T) {
	mu.Lock()
	cache = []Entry{
		{Address: 0x1000, Object: "exe", ObjectPath: "/bin"},
		{Address: 0x2000, Object: "exe", ObjectPath: "/bin"},
		{Address: 0x5000, Object: "exe", ObjectPath: "/bin"},
	}
	populated = true
	mu.Unlock()
	defer ClearSymbols()

	obj, path := LookupObject(0x2500)
	if obj != "exe" || path != "/bin" {
		t.Errorf("LookupObject(0x2500) = (%q, %q)", obj, path)
	}
}

func TestSplitPath(t *testing.T) {
	dir, base := splitPath("/usr/bin/foo")
	if dir != "/usr/bin" || base != "foo" {
		t.Errorf("splitPath = (%q, %q)", dir, base)
	}
	dir, base = splitPath("foo")
	if dir != "" || base != "foo" {
		t.Errorf("splitPath(no dir) = (%q, %q)", dir, base)
	}
}
