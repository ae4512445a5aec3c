package rw

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter(t *testing.T) {
	var buf bytes.Buffer
	cw := &Counter{W: &buf}
	_, _ = cw.Write([]byte("%PDF-"))
	_, _ = cw.Write([]byte("1.3"))
	assert.Equal(t, int64(8), cw.N)
	assert.Equal(t, "%PDF-1.3", buf.String())
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cert.pdf")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	n, err := WriteFileAtomic(path, 0o640, func(w io.Writer) error {
		_, err := io.WriteString(w, "new content")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new content", string(got))

	_, err = WriteFileAtomic(path, 0o640, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return errors.New("render failed")
	})
	assert.Error(t, err)
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new content", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
