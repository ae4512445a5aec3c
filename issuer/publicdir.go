package issuer

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/zeptools/certgw/rw"
)

// publicDir is the served files root. Stored paths like "/certificates/x.pdf" are relative to it.
type publicDir struct {
	root string
}

func relName(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// write replaces the file atomically, so a download never serves a partial PDF
func (d publicDir) write(p string, data []byte) error {
	root, err := os.OpenRoot(d.root)
	if err != nil {
		return err
	}
	defer func() { _ = root.Close() }()
	name := relName(p)
	if err = root.MkdirAll(path.Dir(name), 0o755); err != nil {
		return err
	}
	_, err = rw.WriteFileAtomic(filepath.Join(d.root, filepath.FromSlash(name)), 0o644, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	return err
}

func (d publicDir) read(p string) ([]byte, error) {
	root, err := os.OpenRoot(d.root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = root.Close() }()
	return root.ReadFile(relName(p))
}

// remove ignores missing files
func (d publicDir) remove(p string) error {
	root, err := os.OpenRoot(d.root)
	if err != nil {
		return err
	}
	defer func() { _ = root.Close() }()
	if err = root.Remove(relName(p)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
