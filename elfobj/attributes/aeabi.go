package attributes

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrPatchTooLarge is reported when the wchar tag's current value
	// occupies more than one ULEB128 byte, so a single-byte
	// replacement cannot be written without shifting the rest of the
	// stream. It is recorded per occurrence and never aborts the scan.
	ErrPatchTooLarge = errors.New("current value is too large to patch in place")
)

// Handle is the open object file a scan operates on. Write is only
// exercised when a patch is requested, so a read-only file still
// satisfies the interface for inspection.
type Handle interface {
	io.Reader
	io.Writer
	io.Seeker
}

// Scoping markers. A leading 2 or 3 prefixes the tag stream with a
// zero-terminated run of section or symbol indices; any other leading
// byte, 0 included, is not special and tag parsing starts at the next
// byte.
const (
	markerSection = 2
	markerSymbol  = 3
)

// scratchCapacity bounds the capture of string attribute values.
// Longer values are truncated, not an error.
const scratchCapacity = 1024

// WcharTag is one observed occurrence of Tag_ABI_PCS_wchar_t.
type WcharTag struct {
	// Value is the value the tag held when it was read.
	Value uint64

	// Patched reports whether the value byte was rewritten in place.
	Patched bool

	// NewValue is the replacement written when Patched is true.
	NewValue uint8

	// Err records a per-occurrence patch refusal (ErrPatchTooLarge);
	// the occurrence was left untouched and the scan continued.
	Err error
}

// walkAeabi decodes the tag/value pairs of one aeabi vendor payload,
// reporting every wchar tag it passes and patching each one in place
// when a replacement was requested. The cursor must already sit just
// past the vendor name; the walk ends when it reaches the subsection
// bound exactly.
func walkAeabi(h Handle, cur *Cursor, replacement *uint8) ([]WcharTag, error) {
	marker, err := readByte(h, cur)
	if err != nil {
		return nil, fmt.Errorf("read scoping marker: %w", err)
	}

	if marker == markerSection || marker == markerSymbol {
		for {
			id, err := ReadULEB128(h, cur)
			if err != nil {
				return nil, fmt.Errorf("read scope index: %w", err)
			}

			if id == 0 {
				break
			}
		}
	}

	var found []WcharTag
	scratch := make([]byte, scratchCapacity)

	for cur.Remaining() > 0 {
		raw, err := ReadULEB128(h, cur)
		if err != nil {
			return nil, fmt.Errorf("read attribute tag: %w", err)
		}

		tag := Tag(raw)
		if tag == TagABIPCSWchar {
			occurrence, err := inspectWcharTag(h, cur, replacement)
			if err != nil {
				return nil, err
			}

			found = append(found, occurrence)
			continue
		}

		switch tag.Encoding() {
		case EncodingNTBS:
			// Unregistered string tags are discarded without capture.
			dst := scratch
			if !tag.Registered() {
				dst = nil
			}

			if err := ReadNTBS(h, dst, cur); err != nil {
				return nil, fmt.Errorf("skip %s: %w", tag, err)
			}

		default:
			if _, err := ReadULEB128(h, cur); err != nil {
				return nil, fmt.Errorf("skip %s: %w", tag, err)
			}
		}
	}

	return found, nil
}

// inspectWcharTag decodes the wchar tag's value and, when a
// replacement was requested and the current value fits a single
// ULEB128 byte, seeks back one byte and overwrites it. The rewrite
// preserves the encoded length, so the cursor position stays valid.
func inspectWcharTag(h Handle, cur *Cursor, replacement *uint8) (WcharTag, error) {
	value, err := ReadULEB128(h, cur)
	if err != nil {
		return WcharTag{}, fmt.Errorf("read %s: %w", TagABIPCSWchar, err)
	}

	occurrence := WcharTag{Value: value}
	if replacement == nil {
		return occurrence, nil
	}

	if value > 0x7f {
		occurrence.Err = ErrPatchTooLarge
		return occurrence, nil
	}

	if _, err := h.Seek(-1, io.SeekCurrent); err != nil {
		return WcharTag{}, fmt.Errorf("seek to value byte: %w", err)
	}

	if _, err := h.Write([]byte{*replacement}); err != nil {
		return WcharTag{}, fmt.Errorf("patch value byte: %w", err)
	}

	occurrence.Patched = true
	occurrence.NewValue = *replacement
	return occurrence, nil
}
