package themefs

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestZipDirHasNoWrapperFolder(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a", "b.txt"), "hello")
	writeFile(t, filepath.Join(src, "config", "settings_data.json"), "{}")

	var buf bytes.Buffer
	require.NoError(t, ZipDir(src, &buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"a/b.txt", "config/settings_data.json"}, names)
}

func TestZipUnzipRoundTrip(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a", "b.txt"), "hello")

	archive := filepath.Join(t.TempDir(), "theme.zip")
	f, err := os.Create(archive)
	require.NoError(t, err)
	require.NoError(t, ZipDir(src, f))
	require.NoError(t, f.Close())

	dest := t.TempDir()
	require.NoError(t, Unzip(archive, dest))

	got, err := os.ReadFile(filepath.Join(dest, "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestUnzipRejectsPathTraversal(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "evil.zip")
	f, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("../escape.txt")
	require.NoError(t, err)
	_, _ = w.Write([]byte("x"))
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	dest := t.TempDir()
	err = Unzip(archive, dest)
	assert.ErrorContains(t, err, "illegal path")
	_, statErr := os.Stat(filepath.Join(filepath.Dir(dest), "escape.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "sections", "header.liquid"), "<header/>")

	dest := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, CopyDir(src, dest))

	got, err := os.ReadFile(filepath.Join(dest, "sections", "header.liquid"))
	require.NoError(t, err)
	assert.Equal(t, "<header/>", string(got))
}

type failingCloser struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (f *failingCloser) Close() error {
	f.closed = true
	return f.closeErr
}

func TestCopyAndCloseReportsCloseError(t *testing.T) {
	dst := &failingCloser{closeErr: errors.New("disk full")}
	err := copyAndClose(dst, strings.NewReader(`{"current":{}}`))
	require.EqualError(t, err, "disk full")
	assert.True(t, dst.closed)
	assert.Equal(t, `{"current":{}}`, dst.String())

	ok := &failingCloser{}
	require.NoError(t, copyAndClose(ok, strings.NewReader("x")))
	assert.True(t, ok.closed)
}

func TestCopyAndCloseClosesAfterReadError(t *testing.T) {
	dst := &failingCloser{}
	err := copyAndClose(dst, iotest.ErrReader(errors.New("corrupt entry")))
	require.EqualError(t, err, "corrupt entry")
	assert.True(t, dst.closed)
}
