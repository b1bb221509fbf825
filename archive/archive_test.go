package archive

import (
	"archive/tar"
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func TestAssembleParts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "log.lz4.part-ab"), []byte("world"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "log.lz4.part-aa"), []byte("hello "), 0o644))

	path, err := AssembleParts(dir, "log.lz4")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	// Second call finds the consolidated file and leaves it alone.
	again, err := AssembleParts(dir, "log.lz4")
	require.NoError(t, err)
	assert.Equal(t, path, again)
}

func TestAssemblePartsMissing(t *testing.T) {
	t.Parallel()

	_, err := AssembleParts(t.TempDir(), "absent.lz4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cat")
	assert.Contains(t, err.Error(), "part-*")
}

func TestOpenLinesLZ4RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "fills.lz4")

	f, err := os.Create(path)
	require.NoError(t, err)
	w := lz4.NewWriter(f)
	_, err = w.Write([]byte("line one\nline two\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	r, err := OpenLines(path)
	require.NoError(t, err)
	defer r.Close()

	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{"line one", "line two"}, lines)
}

func TestOpenLinesPlainFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "fills.json")
	require.NoError(t, os.WriteFile(path, []byte("plain\n"), 0o644))

	r, err := OpenLines(path)
	require.NoError(t, err)
	defer r.Close()

	scanner := bufio.NewScanner(r)
	require.True(t, scanner.Scan())
	assert.Equal(t, "plain", scanner.Text())
}

func TestExtractTarXz(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "snap.tar.xz")

	f, err := os.Create(archivePath)
	require.NoError(t, err)
	xw, err := xz.NewWriter(f)
	require.NoError(t, err)
	tw := tar.NewWriter(xw)

	content := []byte(`[{"user":"0xaaa","account_value":100}]`)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "account_value_snapshot.json",
		Mode: 0o644,
		Size: int64(len(content)),
	}))
	_, err = tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, xw.Close())
	require.NoError(t, f.Close())

	dest := filepath.Join(dir, "raw")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	require.NoError(t, ExtractTarXz(archivePath, dest))

	data, err := os.ReadFile(filepath.Join(dest, "account_value_snapshot.json"))
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestExtractTarXzRejectsEscape(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.tar.xz")

	f, err := os.Create(archivePath)
	require.NoError(t, err)
	xw, err := xz.NewWriter(f)
	require.NoError(t, err)
	tw := tar.NewWriter(xw)

	content := []byte("nope")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "../outside.txt",
		Mode: 0o644,
		Size: int64(len(content)),
	}))
	_, err = tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, xw.Close())
	require.NoError(t, f.Close())

	dest := filepath.Join(dir, "raw")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	err = ExtractTarXz(archivePath, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
}
