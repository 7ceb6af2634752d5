package archive

import (
	"fmt"
	"io"
)

// memberBuffer is an in-memory seekable view over one archive member's
// bytes, so the scanner can read and patch it like a file on disk.
type memberBuffer struct {
	data []byte
	off  int64
}

func (m *memberBuffer) Read(p []byte) (int, error) {
	if m.off >= int64(len(m.data)) {
		return 0, io.EOF
	}

	n := copy(p, m.data[m.off:])
	m.off += int64(n)
	return n, nil
}

func (m *memberBuffer) Write(p []byte) (int, error) {
	if m.off > int64(len(m.data)) {
		return 0, fmt.Errorf("write at %d past member end %d", m.off, len(m.data))
	}

	n := copy(m.data[m.off:], p)
	if n < len(p) {
		m.data = append(m.data, p[n:]...)
	}

	m.off += int64(len(p))
	return len(p), nil
}

func (m *memberBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = m.off + offset
	case io.SeekEnd:
		next = int64(len(m.data)) + offset
	default:
		return 0, fmt.Errorf("unsupported whence %d", whence)
	}

	if next < 0 {
		return 0, fmt.Errorf("seek to negative position %d", next)
	}

	m.off = next
	return next, nil
}
