package attributes

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrTruncatedStream is reported when a ULEB128 or NTBS value runs
	// into the bound of its enclosing entity before its terminating
	// byte appears.
	ErrTruncatedStream = errors.New("value extends past the declared bound")
)

// Cursor tracks the decode position within one length-delimited entity,
// be that a whole attributes section, a vendor subsection, or the tag
// stream inside it.
//
// A Cursor is a transient value owned by the caller and threaded by
// pointer through every decode call; its position never passes its
// bound, and a read that would do so fails before consuming anything.
type Cursor struct {
	pos  int64
	size int64
}

// NewCursor constructs a Cursor over an entity of the given size with
// no bytes consumed yet.
func NewCursor(size int64) Cursor {
	return Cursor{size: size}
}

// Pos returns the number of bytes consumed so far.
func (cur *Cursor) Pos() int64 {
	return cur.pos
}

// Remaining returns the number of bytes left before the bound.
func (cur *Cursor) Remaining() int64 {
	return cur.size - cur.pos
}

// readByte consumes a single byte from the stream, counting it against
// the cursor's bound.
func readByte(r io.Reader, cur *Cursor) (byte, error) {
	if cur.pos >= cur.size {
		return 0, ErrTruncatedStream
	}

	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("read byte: %w", err)
	}

	cur.pos++
	return buf[0], nil
}

// ReadULEB128 decodes one unsigned little-endian base-128 value,
// accumulating 7 bits per byte starting with the least significant
// group, and stops immediately after the first byte whose continuation
// bit is clear.
//
// Over-long encodings are accepted as long as the terminating byte
// appears within the cursor's bound.
func ReadULEB128(r io.Reader, cur *Cursor) (uint64, error) {
	var result uint64
	var shift uint

	for {
		b, err := readByte(r, cur)
		if err != nil {
			return 0, fmt.Errorf("ULEB128: %w", err)
		}

		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}

		shift += 7
	}
}

// ReadNTBS consumes a null-terminated byte string. A nil dst skips the
// string; otherwise bytes are captured while they fit, but the full
// string is always consumed so the cursor advances identically either
// way. On success a non-empty dst is null-terminated at its final
// byte even when the string was shorter than the capture, so callers
// must look for the first embedded terminator rather than assume the
// capacity reflects the string length.
func ReadNTBS(r io.Reader, dst []byte, cur *Cursor) error {
	var i int

	for {
		b, err := readByte(r, cur)
		if err != nil {
			return fmt.Errorf("NTBS: %w", err)
		}

		if i < len(dst) {
			dst[i] = b
		}
		i++

		if b == 0 {
			break
		}
	}

	if len(dst) > 0 {
		dst[len(dst)-1] = 0
	}

	return nil
}
