package manifest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/banshee-data/camtransforms/internal/fsutil"
)

// IOError reports a failed manifest read or write.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("manifest %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Writer persists manifests through a FileSystem.
type Writer struct {
	FS   fsutil.FileSystem
	Perm os.FileMode
}

// NewWriter returns a Writer on fsys. A nil fsys uses the OS filesystem.
func NewWriter(fsys fsutil.FileSystem) *Writer {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Writer{FS: fsys, Perm: 0o644}
}

// Write marshals m in full and replaces path atomically. On failure no
// manifest, partial or otherwise, is left at path.
func (w *Writer) Write(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return &IOError{Op: "encode", Path: path, Err: err}
	}
	data = append(data, '\n')

	perm := w.Perm
	if perm == 0 {
		perm = 0o644
	}
	if err := fsutil.WriteFileAtomic(w.FS, path, data, perm); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Read loads a manifest previously written by Write.
func (w *Writer) Read(path string) (*Manifest, error) {
	data, err := w.FS.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &IOError{Op: "decode", Path: path, Err: err}
	}
	return &m, nil
}
