package frame

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sigtrace/stacktrace/arch"
)

// Pack writes a fixed-field encoding of f to w: two uint64 addresses, one
// int32 line number, then five length-prefixed strings (object, object
// path, function, filename, filename path). This is the frame half of the
// cluster wire format;
// multistack.Pack drives it recursively for a whole tree.
func (f Frame) Pack(w io.Writer) error {
	f.Truncate()
	var hdr [20]byte
	arch.PutUint64(hdr[0:8], f.Address)
	arch.PutUint64(hdr[8:16], f.AddressRel)
	arch.PutUint32(hdr[16:20], uint32(f.Line))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	for _, s := range []string{f.Object, f.ObjectPath, f.Function, f.Filename, f.FilenamePath} {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	return nil
}

// Unpack reads the encoding written by Pack.
func Unpack(r io.Reader) (Frame, error) {
	var f Frame
	var hdr [20]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return f, err
	}
	f.Address = arch.Uint64(hdr[0:8])
	f.AddressRel = arch.Uint64(hdr[8:16])
	f.Line = int(int32(arch.Uint32(hdr[16:20])))

	var err error
	if f.Object, err = readString(r); err != nil {
		return f, err
	}
	if f.ObjectPath, err = readString(r); err != nil {
		return f, err
	}
	if f.Function, err = readString(r); err != nil {
		return f, err
	}
	if f.Filename, err = readString(r); err != nil {
		return f, err
	}
	if f.FilenamePath, err = readString(r); err != nil {
		return f, err
	}
	return f, nil
}

func writeString(w io.Writer, s string) error {
	var n [4]byte
	arch.PutUint32(n[:], uint32(len(s)))
	if _, err := w.Write(n[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n [4]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return "", err
	}
	length := arch.Uint32(n[:])
	if length > MaxFunctionLen {
		return "", fmt.Errorf("frame: string field too long (%d bytes)", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// NewBufferedReader is a convenience for callers that Unpack many
// frames/nodes back to back off a single connection. Nothing in this
// module calls it; the cluster reply path unpacks from an in-memory
// bytes.Reader.
func NewBufferedReader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, 4096)
}
