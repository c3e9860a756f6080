package jsonstore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io/fs"
)

// WriteFileAtomic writes data to path via a temporary file in the same
// directory followed by a rename, so readers see either the old or the new
// content and never a truncated file.
func WriteFileAtomic(fsys FS, path string, data []byte, perm fs.FileMode) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return fmt.Errorf("generating random suffix: %w", err)
	}
	tmp := path + ".tmp." + hex.EncodeToString(randBytes)

	if err := fsys.WriteFile(tmp, data, perm); err != nil {
		fsys.Remove(tmp) // best effort cleanup
		return err
	}
	if err := fsys.Rename(tmp, path); err != nil {
		fsys.Remove(tmp) // best effort cleanup
		return err
	}
	return nil
}
