package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	// tmpSuffix marks in-flight writes next to their destination.
	tmpSuffix    = ".tmp"
	tempAttempts = 10
)

// WriteFileAtomic writes data to a uniquely named sibling temporary file
// and renames it over name, so readers see either the old contents or the
// complete new contents. The temporary file is removed on failure; other
// files in the directory are never touched.
func WriteFileAtomic(fsys FileSystem, name string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(name)
	if dir != "." && !fsys.Exists(dir) {
		return &os.PathError{Op: "write", Path: name, Err: fmt.Errorf("directory %s does not exist", dir)}
	}

	tmp, err := tempName(fsys, name)
	if err != nil {
		return err
	}
	if err := fsys.WriteFile(tmp, data, perm); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}
	if err := fsys.Rename(tmp, name); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}
	return nil
}

// tempName returns an unused sibling path of the form name.<random>.tmp.
func tempName(fsys FileSystem, name string) (string, error) {
	for i := 0; i < tempAttempts; i++ {
		tmp := fmt.Sprintf("%s.%s%s", name, uuid.NewString()[:8], tmpSuffix)
		if !fsys.Exists(tmp) {
			return tmp, nil
		}
	}
	return "", &os.PathError{Op: "write", Path: name, Err: fmt.Errorf("no free temporary name after %d attempts", tempAttempts)}
}
