// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import (
	"fmt"
	"os"
	"path/filepath"
)

// TempFile is a handle to a temp file opened in the same directory as its
// eventual target, ready to be atomically renamed into place or discarded.
// Grounded on the teacher's internal/config/secure_storage.go
// SecureWriteFile: temp file first, rename on success, unlink on failure.
// Rule files gate kernel packet filtering, so they additionally get the
// teacher's 0600 permission hardening.
type TempFile struct {
	target  string
	tmpPath string
	f       *os.File
}

// OpenForWrite opens a temp file in the same directory as path, named
// "<base>.tmp-<pid>" to avoid colliding with a concurrent writer sharing
// the same target (spec.md assumes a single administrator, but a crashed
// prior run's leftover temp file must not be clobbered silently).
func OpenForWrite(path string) (*TempFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmpPath := fmt.Sprintf("%s.tmp-%d", path, os.Getpid())
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening temp file %s: %w", tmpPath, err)
	}
	return &TempFile{target: path, tmpPath: tmpPath, f: f}, nil
}

// Write implements io.Writer.
func (t *TempFile) Write(p []byte) (int, error) {
	return t.f.Write(p)
}

// Commit closes the temp file and atomically renames it over the target.
// On any failure the temp file is removed.
func (t *TempFile) Commit() error {
	if err := t.f.Close(); err != nil {
		os.Remove(t.tmpPath)
		return fmt.Errorf("closing temp file %s: %w", t.tmpPath, err)
	}
	if err := os.Rename(t.tmpPath, t.target); err != nil {
		os.Remove(t.tmpPath)
		return fmt.Errorf("renaming %s to %s: %w", t.tmpPath, t.target, err)
	}
	return nil
}

// Abort closes and removes the temp file without touching the target.
func (t *TempFile) Abort() error {
	t.f.Close()
	return os.Remove(t.tmpPath)
}
