package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PruneResult contains information about what was pruned.
type PruneResult struct {
	Deleted []string `json:"deleted" yaml:"deleted" toml:"deleted"`
	Kept    int      `json:"kept" yaml:"kept" toml:"kept"`
}

// Cleanup removes every top-level entry of the backup folder whose age in
// whole days exceeds retentionDays. Age comes from the modification time.
// Removal is best effort: all entries are visited and failures are joined.
func (m *Manager) Cleanup(retentionDays int) (*PruneResult, error) {
	if retentionDays < 0 {
		return nil, fmt.Errorf("retention days must be non-negative")
	}

	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return &PruneResult{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	now := m.now()
	result := &PruneResult{}
	var errs []error

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if ageDays(now, info.ModTime()) <= retentionDays {
			result.Kept++
			continue
		}

		path := filepath.Join(m.backupDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", entry.Name(), err))
			continue
		}
		result.Deleted = append(result.Deleted, entry.Name())
	}

	return result, errors.Join(errs...)
}

func ageDays(now, mtime time.Time) int {
	return int(now.Sub(mtime) / (24 * time.Hour))
}
