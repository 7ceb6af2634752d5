package archive

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, members map[string][]byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "libtest.a")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	writer := ar.NewWriter(file)
	require.NoError(t, writer.WriteGlobalHeader())

	// Stable order so tests can rely on member positions.
	for _, name := range []string{"readme.txt", "crt0.o"} {
		data, ok := members[name]
		if !ok {
			continue
		}

		require.NoError(t, writer.WriteHeader(&ar.Header{
			Name:    name,
			ModTime: time.Unix(0, 0),
			Mode:    0644,
			Size:    int64(len(data)),
		}))
		_, err = writer.Write(data)
		require.NoError(t, err)
	}

	return path
}

func readArchive(t *testing.T, path string) map[string][]byte {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	members := make(map[string][]byte)
	reader := ar.NewReader(file)
	for {
		hdr, err := reader.Next()
		if err == io.EOF {
			return members
		}
		require.NoError(t, err)

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		members[hdr.Name] = data
	}
}

func TestIsArchive(t *testing.T) {
	path := writeArchive(t, map[string][]byte{"readme.txt": []byte("hi")})

	isAr, err := IsArchive(path)
	require.NoError(t, err)
	assert.True(t, isAr)

	plain := filepath.Join(t.TempDir(), "object.o")
	require.NoError(t, os.WriteFile(plain, []byte{0x7f, 'E', 'L', 'F', 1, 1, 1}, 0644))

	isAr, err = IsArchive(plain)
	require.NoError(t, err)
	assert.False(t, isAr)

	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0644))

	isAr, err = IsArchive(empty)
	require.NoError(t, err)
	assert.False(t, isAr)
}

func TestRewritePatchesELFMembersOnly(t *testing.T) {
	object := append([]byte{0x7f, 'E', 'L', 'F'}, []byte{1, 2, 3, 4}...)
	text := []byte("not an object\n")
	path := writeArchive(t, map[string][]byte{"crt0.o": object, "readme.txt": text})

	var visited []string
	changed, err := Rewrite(path, func(name string, member io.ReadWriteSeeker) (bool, error) {
		visited = append(visited, name)

		// Flip one byte in place, like a real patch does.
		_, err := member.Seek(5, io.SeekStart)
		require.NoError(t, err)
		_, err = member.Write([]byte{9})
		require.NoError(t, err)
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Equal(t, []string{"crt0.o"}, visited, "only ELF members are visited")

	members := readArchive(t, path)
	assert.Equal(t, text, members["readme.txt"], "non-ELF member passed through untouched")

	want := append([]byte{}, object...)
	want[5] = 9
	assert.Equal(t, want, members["crt0.o"])
}

func TestRewriteUnchangedLeavesArchiveAlone(t *testing.T) {
	object := append([]byte{0x7f, 'E', 'L', 'F'}, []byte{1, 2, 3, 4}...)
	path := writeArchive(t, map[string][]byte{"crt0.o": object})

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	changed, err := Rewrite(path, func(string, io.ReadWriteSeeker) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, changed)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(before, after), "archive bytes changed without a modified member")
}

func TestMemberBuffer(t *testing.T) {
	m := &memberBuffer{data: []byte{1, 2, 3, 4, 5}}

	pos, err := m.Seek(-2, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pos)

	buf := make([]byte, 8)
	n, err := m.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{4, 5}, buf[:n])

	_, err = m.Read(buf)
	assert.Equal(t, io.EOF, err)

	// Overwrite in the middle, the size-preserving patch pattern.
	_, err = m.Seek(1, io.SeekStart)
	require.NoError(t, err)
	_, err = m.Write([]byte{9})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 9, 3, 4, 5}, m.data)

	_, err = m.Seek(-1, io.SeekStart)
	assert.Error(t, err)
}
