// Package backup snapshots Firefox profile directories and manages the
// resulting backup folder.
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	// BackupPrefix starts the name of every snapshot.
	BackupPrefix = "profile_backup_"

	// TimestampLayout is the snapshot name suffix.
	TimestampLayout = "2006-01-02_15-04-05"

	// DefaultRetentionDays is how long snapshots are kept.
	DefaultRetentionDays = 60

	// FreeSpaceFactor is the headroom wanted over the profile size.
	FreeSpaceFactor = 1.2

	zipExt = ".zip"
)

var (
	// ErrBackupExists is returned when a snapshot for the same second exists.
	ErrBackupExists = errors.New("backup already exists")

	// ErrNotFound is returned when a requested backup does not exist.
	ErrNotFound = errors.New("backup not found")
)

// Options control a single snapshot.
type Options struct {
	Compress      bool
	RetentionDays int
	// Log receives progress lines. It may be nil.
	Log func(string)
}

func (o Options) log(format string, args ...any) {
	if o.Log != nil {
		o.Log(fmt.Sprintf(format, args...))
	}
}

// Entry describes one snapshot in the backup folder.
type Entry struct {
	ID         string    `json:"id" yaml:"id" toml:"id"`
	Path       string    `json:"path" yaml:"path" toml:"path"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at" toml:"created_at"`
	Size       int64     `json:"size" yaml:"size" toml:"size"`
	Compressed bool      `json:"compressed" yaml:"compressed" toml:"compressed"`
}

// Manager handles backup operations under a root folder.
type Manager struct {
	backupDir string
	now       func() time.Time
}

// NewManager creates a backup manager for backupDir.
func NewManager(backupDir string) *Manager {
	return &Manager{
		backupDir: backupDir,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for naming and retention.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// BackupDir returns the backup directory path.
func (m *Manager) BackupDir() string {
	return m.backupDir
}

// Create copies profileDir into a new timestamped snapshot, optionally
// compresses it, applies retention, and returns the snapshot path.
func (m *Manager) Create(profileDir string, opts Options) (string, error) {
	// A profile moved to tmpfs is often left behind as a symlink; snapshot
	// what it points at.
	resolved, err := filepath.EvalSymlinks(profileDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve profile: %w", err)
	}
	profileDir = resolved

	// 1. Ensure backup directory exists
	if err := os.MkdirAll(m.backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	// 2. Space check, advisory only
	size, err := dirSize(profileDir)
	if err != nil {
		return "", fmt.Errorf("failed to measure profile: %w", err)
	}
	if free, err := freeBytes(m.backupDir); err == nil && float64(free) < float64(size)*FreeSpaceFactor {
		opts.log("[warn] Low free space (%s) for profile size (%s)", humanize.Bytes(free), humanize.Bytes(uint64(size)))
	}

	// 3. Target name
	now := m.now()
	target := filepath.Join(m.backupDir, BackupPrefix+now.Format(TimestampLayout))
	for _, p := range []string{target, target + zipExt} {
		if _, err := os.Lstat(p); err == nil {
			return "", fmt.Errorf("%w: %s", ErrBackupExists, filepath.Base(p))
		}
	}

	// 4. Copy
	opts.log("[backup] In progress -> %s", target)
	if err := copyTree(profileDir, target); err != nil {
		_ = os.RemoveAll(target)
		return "", fmt.Errorf("failed to copy profile: %w", err)
	}
	// The copy carries the profile's mtime; age must start now.
	_ = os.Chtimes(target, now, now)

	// 5. Compress
	if opts.Compress {
		archive := target + zipExt
		if err := zipDir(target, archive); err != nil {
			_ = os.Remove(archive)
			_ = os.RemoveAll(target)
			return "", fmt.Errorf("failed to compress backup: %w", err)
		}
		if err := os.RemoveAll(target); err != nil {
			return "", fmt.Errorf("failed to remove uncompressed backup: %w", err)
		}
		target = archive
		opts.log("[backup] Compressed -> %s", filepath.Base(archive))
	}

	// 6. Retention
	if res, err := m.Cleanup(opts.RetentionDays); err != nil {
		opts.log("[warn] Backup cleanup incomplete: %v", err)
	} else if len(res.Deleted) > 0 {
		opts.log("[backup] Removed %d expired backup(s)", len(res.Deleted))
	}

	opts.log("[ok] Backup completed")
	return target, nil
}

// List returns all snapshots sorted by creation time (newest first).
func (m *Manager) List() ([]Entry, error) {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []Entry{}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, BackupPrefix) {
			continue
		}

		compressed := !entry.IsDir()
		if compressed && filepath.Ext(name) != zipExt {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		id := strings.TrimSuffix(name, zipExt)
		path := filepath.Join(m.backupDir, name)

		created, err := time.ParseInLocation(TimestampLayout, strings.TrimPrefix(id, BackupPrefix), time.Local)
		if err != nil {
			created = info.ModTime()
		}

		size := info.Size()
		if !compressed {
			if s, err := dirSize(path); err == nil {
				size = s
			}
		}

		backups = append(backups, Entry{
			ID:         id,
			Path:       path,
			CreatedAt:  created,
			Size:       size,
			Compressed: compressed,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Get retrieves a snapshot by ID. Use "latest" to get the most recent one.
func (m *Manager) Get(id string) (*Entry, error) {
	backups, err := m.List()
	if err != nil {
		return nil, err
	}

	if id == "latest" {
		if len(backups) == 0 {
			return nil, fmt.Errorf("%w: no backups in %s", ErrNotFound, m.backupDir)
		}
		return &backups[0], nil
	}

	id = strings.TrimSuffix(id, zipExt)
	for i := range backups {
		if backups[i].ID == id {
			return &backups[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes a snapshot by ID.
func (m *Manager) Delete(id string) error {
	entry, err := m.Get(id)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(entry.Path); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	return nil
}
