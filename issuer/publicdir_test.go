package issuer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicDir(t *testing.T) {
	d := publicDir{root: t.TempDir()}
	require.NoError(t, d.write("/certificates/../certificates/a.pdf", []byte("first")))
	require.NoError(t, d.write("/certificates/a.pdf", []byte("second")))

	data, err := d.read("certificates/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Join(d.root, "certificates"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.pdf", entries[0].Name())

	// paths never leave the root
	require.NoError(t, d.write("/../../escape.pdf", []byte("x")))
	_, err = os.Stat(filepath.Join(d.root, "escape.pdf"))
	assert.NoError(t, err)

	require.NoError(t, d.remove("/certificates/a.pdf"))
	require.NoError(t, d.remove("/certificates/a.pdf"))
	_, err = d.read("/certificates/a.pdf")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
