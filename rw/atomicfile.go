package rw

import (
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic streams fn's output into a temp file next to path and renames it into place.
// Readers of path see either the old content or the complete new one.
func WriteFileAtomic(path string, perm os.FileMode, fn func(w io.Writer) error) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	fail := func(err error) (int64, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return 0, err
	}
	cw := &Counter{W: tmp}
	if err = fn(cw); err != nil {
		return fail(err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fail(err)
	}
	if err = tmp.Sync(); err != nil {
		return fail(err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return 0, err
	}
	if err = os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return 0, err
	}
	return cw.N, nil
}
