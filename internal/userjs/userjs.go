// Package userjs reads and replaces the user.js file of a Firefox profile.
package userjs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adamancini/betterfox-updater/internal/betterfox"
)

// FileName is the preferences override file Firefox loads at startup.
const FileName = "user.js"

const defaultMode os.FileMode = 0644

// Path returns the user.js path inside profileDir.
func Path(profileDir string) string {
	return filepath.Join(profileDir, FileName)
}

// Read returns the current user.js content.
func Read(profileDir string) (string, error) {
	data, err := os.ReadFile(Path(profileDir))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// LocalVersion returns the Betterfox version of the installed user.js, or
// "" when the file is missing, unreadable or carries no marker.
func LocalVersion(profileDir string) string {
	content, err := Read(profileDir)
	if err != nil {
		return ""
	}
	return betterfox.ExtractVersion(content)
}

// Replacer swaps user.js for new content with rollback support.
type Replacer struct {
	currentPath string
	backupPath  string
	resolved    bool
}

// NewReplacer creates a replacer for the user.js in profileDir.
func NewReplacer(profileDir string) *Replacer {
	current := Path(profileDir)
	return &Replacer{
		currentPath: current,
		backupPath:  current + ".bak",
	}
}

// Target returns the path being replaced.
func (r *Replacer) Target() string {
	return r.currentPath
}

// followLink points the replacer at the file a symlinked user.js refers
// to, so the link itself survives the rename.
func (r *Replacer) followLink() {
	if r.resolved {
		return
	}
	r.resolved = true
	info, err := os.Lstat(r.currentPath)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return
	}
	if target, err := filepath.EvalSymlinks(r.currentPath); err == nil {
		r.currentPath = target
		r.backupPath = target + ".bak"
	}
}

// Stage writes content to a temp file next to user.js and returns its path.
// The content is written verbatim.
func (r *Replacer) Stage(content string) (string, error) {
	r.followLink()
	f, err := os.CreateTemp(filepath.Dir(r.currentPath), ".user.js-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}
	staged := f.Name()

	if _, err := io.WriteString(f, content); err != nil {
		_ = f.Close()
		_ = os.Remove(staged)
		return "", fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(staged)
		return "", fmt.Errorf("failed to flush staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(staged)
		return "", fmt.Errorf("failed to close staging file: %w", err)
	}
	return staged, nil
}

// Discard removes a staged file that will not be used.
func (r *Replacer) Discard(staged string) {
	if staged != "" {
		_ = os.Remove(staged)
	}
}

// Replace moves staged over user.js. The previous file mode is kept; a new
// file gets 0644. On failure the previous user.js is restored.
func (r *Replacer) Replace(staged string) error {
	r.followLink()
	mode := defaultMode
	hadCurrent := false
	if info, err := os.Stat(r.currentPath); err == nil {
		mode = info.Mode().Perm()
		hadCurrent = true
	}

	// 1. Keep a copy of the current file
	if hadCurrent {
		if err := r.createBackup(); err != nil {
			r.Discard(staged)
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}

	// 2. Atomic rename
	if err := os.Rename(staged, r.currentPath); err != nil {
		r.Discard(staged)
		if hadCurrent {
			_ = r.Rollback()
		}
		return fmt.Errorf("failed to replace %s: %w", FileName, err)
	}

	// 3. Permissions
	if err := os.Chmod(r.currentPath, mode); err != nil {
		if hadCurrent {
			_ = r.Rollback()
		}
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	// 4. Drop the backup on success
	_ = os.Remove(r.backupPath)
	return nil
}

// Rollback restores the copy taken by Replace.
func (r *Replacer) Rollback() error {
	if _, err := os.Stat(r.backupPath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("backup not found: %s", r.backupPath)
	}
	if err := os.Rename(r.backupPath, r.currentPath); err != nil {
		return fmt.Errorf("failed to restore from backup: %w", err)
	}
	return nil
}

func (r *Replacer) createBackup() error {
	src, err := os.Open(r.currentPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", FileName, err)
	}
	defer func() { _ = src.Close() }()

	srcInfo, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", FileName, err)
	}

	dst, err := os.OpenFile(r.backupPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(r.backupPath)
		return fmt.Errorf("failed to copy %s to backup: %w", FileName, err)
	}
	return nil
}

// Write stages content and replaces user.js in one step.
func Write(profileDir, content string) error {
	r := NewReplacer(profileDir)
	staged, err := r.Stage(content)
	if err != nil {
		return err
	}
	return r.Replace(staged)
}
