package multistack

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/sigtrace/stacktrace/frame"
)

// lineRe recognizes a rendered frame line leniently: an indent made of
// spaces and guide bars, an optional "[N] " count, the mandatory "0x<hex>:"
// address field, and a free-form remainder carrying whatever optional
// fields were present.
var lineRe = regexp.MustCompile(`^([ |]*)(?:\[(\d+)\]\s*)?0x([0-9A-Fa-f]+):(.*)$`)

var fieldSplitRe = regexp.MustCompile(`\s{2,}`)

var fileLineRe = regexp.MustCompile(`^(.+):(\d+)$`)

// Parse inverts Render: lines without "0x" are skipped, the "[N]" count
// defaults to 1 when absent, depth is inferred from the indent's width (2
// characters per level, whether drawn as spaces or a guide bar), and the
// free-form remainder is split on runs of 2+ spaces and assigned to
// object/function/filename by positional heuristics. A stack of
// (depth, last-node-at-depth) tracks the current insertion parent: rising
// depth pushes, falling depth pops.
func Parse(r io.Reader) (*Node, error) {
	root := &Node{}
	levels := []*Node{root}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "0x") {
			continue
		}
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		depth := len(m[1]) / 2

		count := 1
		if m[2] != "" {
			if v, err := strconv.Atoi(m[2]); err == nil {
				count = v
			}
		}

		addr, err := strconv.ParseUint(m[3], 16, 64)
		if err != nil {
			continue
		}

		obj, fn, filename, fline := splitFields(m[4])
		node := &Node{
			N: count,
			Stack: frame.Frame{
				Address:    addr,
				AddressRel: addr,
				Object:     obj,
				Function:   fn,
				Filename:   filename,
				Line:       fline,
			},
		}

		if depth >= len(levels) {
			depth = len(levels) - 1
		}
		parent := levels[depth]
		parent.Children = append(parent.Children, node)
		levels = append(levels[:depth+1], node)
	}
	return root, scanner.Err()
}

// splitFields applies positional heuristics to a rendered remainder:
// the trailing field is filename (optionally ":line") if it
// looks like one, the field before that is the function, and the field
// before that is the object. Any of the three may be absent.
func splitFields(rest string) (obj, fn, filename string, line int) {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return
	}
	fields := fieldSplitRe.Split(rest, -1)

	if len(fields) > 0 {
		last := fields[len(fields)-1]
		if m := fileLineRe.FindStringSubmatch(last); m != nil {
			filename = m[1]
			line, _ = strconv.Atoi(m[2])
			fields = fields[:len(fields)-1]
		} else if looksLikeFilename(last) {
			filename = last
			fields = fields[:len(fields)-1]
		}
	}
	if len(fields) > 0 {
		fn = fields[len(fields)-1]
		fields = fields[:len(fields)-1]
	}
	if len(fields) > 0 {
		obj = fields[len(fields)-1]
	}
	return
}

var filenameExts = []string{".go", ".c", ".cc", ".cpp", ".h", ".hpp", ".s", ".rs", ".py"}

func looksLikeFilename(s string) bool {
	if strings.Contains(s, "/") {
		return true
	}
	for _, ext := range filenameExts {
		if strings.HasSuffix(s, ext) {
			return true
		}
	}
	return false
}
