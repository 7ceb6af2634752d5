// Package archive extracts and repacks the members of System V ar
// archives so object files inside static libraries can be scanned and
// patched one by one.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/blakesmith/ar"
)

var (
	arMagic  = []byte("!<arch>\n")
	elfMagic = []byte{0x7f, 'E', 'L', 'F'}
)

// MemberFunc is applied to every ELF member of an archive. It operates
// on an in-memory seekable view of the member's bytes and reports
// whether it modified them.
type MemberFunc func(name string, member io.ReadWriteSeeker) (bool, error)

// IsArchive reports whether the file at path starts with the ar
// archive magic.
func IsArchive(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	magic := make([]byte, len(arMagic))
	if _, err = io.ReadFull(file, magic); err == io.EOF || err == io.ErrUnexpectedEOF {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("read file magic: %w", err)
	}

	return bytes.Equal(magic, arMagic), nil
}

// Rewrite walks every member of the archive at path, applying fn to
// each member that looks like an ELF object. Non-ELF members pass
// through untouched. The archive is repacked through a temporary file
// and atomically renamed over the original, but only when at least one
// member was modified; otherwise the original file is left alone.
//
// It returns the number of modified members.
func Rewrite(path string, fn MemberFunc) (int, error) {
	src, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}
	defer src.Close()

	stat, err := src.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat archive: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".wchar-tag-*")
	if err != nil {
		return 0, fmt.Errorf("create temporary archive: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	changed, err := rewriteMembers(ar.NewReader(src), ar.NewWriter(tmp), fn)
	if err != nil {
		return 0, err
	}

	if changed == 0 {
		return 0, nil
	}

	if err = tmp.Chmod(stat.Mode()); err != nil {
		return 0, fmt.Errorf("restore archive permissions: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return 0, fmt.Errorf("flush temporary archive: %w", err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("replace archive: %w", err)
	}

	return changed, nil
}

func rewriteMembers(reader *ar.Reader, writer *ar.Writer, fn MemberFunc) (int, error) {
	if err := writer.WriteGlobalHeader(); err != nil {
		return 0, fmt.Errorf("write archive header: %w", err)
	}

	var changed int
	for {
		hdr, err := reader.Next()
		if err == io.EOF {
			return changed, nil
		} else if err != nil {
			return changed, fmt.Errorf("read member header: %w", err)
		}

		data, err := io.ReadAll(reader)
		if err != nil {
			return changed, fmt.Errorf("read member %q: %w", hdr.Name, err)
		}

		if bytes.HasPrefix(data, elfMagic) {
			member := &memberBuffer{data: data}

			modified, err := fn(strings.TrimSuffix(hdr.Name, "/"), member)
			if err != nil {
				return changed, fmt.Errorf("member %q: %w", hdr.Name, err)
			}

			if modified {
				changed++
				data = member.data
			}
		}

		out := *hdr
		out.Size = int64(len(data))

		if err = writer.WriteHeader(&out); err != nil {
			return changed, fmt.Errorf("write member header %q: %w", hdr.Name, err)
		}

		if _, err = writer.Write(data); err != nil {
			return changed, fmt.Errorf("write member %q: %w", hdr.Name, err)
		}
	}
}
