package writer

import (
	"errors"
	"os"
	"path/filepath"
)

// ModeLine is the first line of every output file. It tells Emacs to open
// the file in org-mode.
const ModeLine = "# -*- mode: org -*-"

// Content returns the exact bytes Write puts on disk for document.
func Content(document string) []byte {
	return []byte(ModeLine + "\n" + document)
}

// Write replaces the file at path with the mode line followed by document.
//
//   - Ensures the parent directory exists (0755).
//   - Writes to a temp file in the same directory, then renames it over
//     path, so readers see either the old or the new file.
//   - Final permissions are 0644.
func Write(path, document string) error {
	if path == "" {
		return errors.New("writer: output path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".orgcal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// No-op after a successful rename.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(Content(document)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
