// Package trash moves files and directories into the user trash instead of
// unlinking them, so TUI deletions stay recoverable.
package trash

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Mover is the deletion operation the TUI consumes. Tests substitute it.
type Mover func(path string) error

// Move relocates path into the XDG trash directory, writing the
// freedesktop.org .trashinfo sidecar so desktop environments can restore
// it. The rename requires trash and path to share a filesystem.
func Move(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("trash %s: %w", path, err)
	}

	filesDir, infoDir, err := trashDirs()
	if err != nil {
		return fmt.Errorf("trash %s: %w", path, err)
	}

	name := uniqueName(filesDir, filepath.Base(abs))
	info := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		abs, time.Now().Format("2006-01-02T15:04:05"))
	if err := os.WriteFile(filepath.Join(infoDir, name+".trashinfo"), []byte(info), 0o600); err != nil {
		return fmt.Errorf("trash %s: %w", path, err)
	}

	if err := os.Rename(abs, filepath.Join(filesDir, name)); err != nil {
		_ = os.Remove(filepath.Join(infoDir, name+".trashinfo"))
		return fmt.Errorf("trash %s: %w", path, err)
	}
	return nil
}

func trashDirs() (files, info string, err error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	files = filepath.Join(base, "Trash", "files")
	info = filepath.Join(base, "Trash", "info")
	if err := os.MkdirAll(files, 0o700); err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(info, 0o700); err != nil {
		return "", "", err
	}
	return files, info, nil
}

// uniqueName suffixes the base name until it collides with nothing already
// in the trash.
func uniqueName(dir, base string) string {
	name := base
	for i := 1; ; i++ {
		if _, err := os.Lstat(filepath.Join(dir, name)); os.IsNotExist(err) {
			return name
		}
		name = base + "." + strconv.Itoa(i)
	}
}
