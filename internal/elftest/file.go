package elftest

import (
	"fmt"
	"io"
)

// File is an in-memory read-write-seekable byte store standing in for
// an open object file.
type File struct {
	Data []byte

	// MaxRead is the highest offset any Read has touched, letting
	// tests assert that a decoder never consumed a guard byte.
	MaxRead int64

	off int64
}

func NewFile(data []byte) *File {
	return &File{Data: data}
}

func (f *File) Read(p []byte) (int, error) {
	if f.off >= int64(len(f.Data)) {
		return 0, io.EOF
	}

	n := copy(p, f.Data[f.off:])
	f.off += int64(n)
	if f.off > f.MaxRead {
		f.MaxRead = f.off
	}
	return n, nil
}

// Write overwrites bytes in place; extending the store is an error so
// a size-changing patch can't slip through a test unnoticed.
func (f *File) Write(p []byte) (int, error) {
	if f.off+int64(len(p)) > int64(len(f.Data)) {
		return 0, fmt.Errorf("write of %d bytes at %d extends past end %d", len(p), f.off, len(f.Data))
	}

	copy(f.Data[f.off:], p)
	f.off += int64(len(p))
	return len(p), nil
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = f.off + offset
	case io.SeekEnd:
		next = int64(len(f.Data)) + offset
	default:
		return 0, fmt.Errorf("unsupported whence %d", whence)
	}

	if next < 0 {
		return 0, fmt.Errorf("seek to negative position %d", next)
	}

	f.off = next
	return next, nil
}
