package attributes

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrBadFormat is reported when the attributes section, or the
	// file carrying it, doesn't have the layout this tool understands.
	ErrBadFormat = errors.New("unrecognized format")

	// ErrBoundsExceeded is reported when a declared length field would
	// require reading past the enclosing range.
	ErrBoundsExceeded = errors.New("declared length exceeds the enclosing range")
)

// formatVersion is the only attributes section format version this
// tool understands.
const formatVersion = 'A'

// vendorNameCapacity bounds the capture of a subsection's vendor name.
const vendorNameCapacity = 128

// subsectionHeaderSize is the size of the subsection length field,
// which counts itself as part of the declared length.
const subsectionHeaderSize = 4

// aeabiVendor is the one vendor namespace whose attributes are
// interpreted; every other subsection is skipped wholesale.
const aeabiVendor = "aeabi"

// ParseSection walks every vendor subsection of one ARM-attributes
// section. The handle must be positioned at the section's first byte
// and size must be the section size declared by its header.
//
// The walk delegates aeabi subsections to the attribute-stream walker
// and seeks straight over any other vendor's payload; either way the
// section cursor advances by the full declared subsection length.
func ParseSection(h Handle, size int64, replacement *uint8) ([]WcharTag, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: empty attributes section", ErrBadFormat)
	}

	var version [1]byte
	if _, err := io.ReadFull(h, version[:]); err != nil {
		return nil, fmt.Errorf("read format version: %w", err)
	}

	if version[0] != formatVersion {
		return nil, fmt.Errorf("%w: unknown attributes format version %q", ErrBadFormat, version[0])
	}

	var found []WcharTag
	pos := int64(1)

	for pos < size {
		if pos+subsectionHeaderSize > size {
			return nil, fmt.Errorf("%w: unexpected end of attributes section", ErrBoundsExceeded)
		}

		var length uint32
		if err := binary.Read(h, binary.LittleEndian, &length); err != nil {
			return nil, fmt.Errorf("read subsection length: %w", err)
		}

		if int64(length) < subsectionHeaderSize || pos+int64(length) > size {
			return nil, fmt.Errorf("%w: subsection of %d bytes doesn't fit the section", ErrBoundsExceeded, length)
		}

		cur := Cursor{pos: subsectionHeaderSize, size: int64(length)}

		vendor := make([]byte, vendorNameCapacity)
		if err := ReadNTBS(h, vendor, &cur); err != nil {
			return nil, fmt.Errorf("read vendor name: %w", err)
		}

		if cstring(vendor) == aeabiVendor {
			tags, err := walkAeabi(h, &cur, replacement)
			if err != nil {
				return nil, err
			}

			found = append(found, tags...)
		}

		if remainder := cur.Remaining(); remainder > 0 {
			if _, err := h.Seek(remainder, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("skip %q subsection: %w", cstring(vendor), err)
			}
		}

		pos += int64(length)
	}

	return found, nil
}

// cstring interprets buf as a null-terminated string.
func cstring(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i])
	}

	return string(buf)
}
