package textfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.py")
	require.NoError(t, os.WriteFile(path, []byte("s = 'héllo'\n"), 0644))

	doc, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, UTF8, doc.Encoding)
	assert.Equal(t, "s = 'héllo'\n", doc.Text)
}

func TestReadLatin1Fallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.py")
	// 0xE9 is é in Latin-1 and invalid on its own in UTF-8.
	require.NoError(t, os.WriteFile(path, []byte{'#', ' ', 'c', 'a', 'f', 0xE9, '\n'}, 0644))

	doc, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, Latin1, doc.Encoding)
	assert.Equal(t, "# café\n", doc.Text)
}

func TestWriteKeepsLatin1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.py")
	used, err := Write(path, "x = 'café'\n", Latin1)
	require.NoError(t, err)
	assert.Equal(t, Latin1, used)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("x = 'caf\xe9'\n"), raw)
}

func TestWriteFallsBackToUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.py")
	used, err := Write(path, "arrow = '→'\n", Latin1)
	require.NoError(t, err)
	assert.Equal(t, UTF8, used)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "arrow = '→'\n", string(raw))
}

func TestEncodeUnrepresentable(t *testing.T) {
	// Invalid UTF-8 that also contains a rune outside Latin-1.
	_, _, err := Encode("\xff→", UTF8)
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestWritePreservesMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.sh")
	require.NoError(t, os.WriteFile(path, []byte("echo a\n"), 0755))

	_, err := Write(path, "echo b\n", UTF8)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}
