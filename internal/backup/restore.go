package backup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adamancini/betterfox-updater/internal/userjs"
)

// RestoreUserJS copies user.js from the snapshot id ("latest" allowed)
// back into profileDir and returns the snapshot used.
func (m *Manager) RestoreUserJS(id, profileDir string) (*Entry, error) {
	entry, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	var content []byte
	if entry.Compressed {
		content, err = readFromZip(entry.Path, userjs.FileName)
	} else {
		content, err = os.ReadFile(filepath.Join(entry.Path, userjs.FileName))
		if os.IsNotExist(err) {
			err = fmt.Errorf("%w: %s not in %s", ErrNotFound, userjs.FileName, entry.ID)
		}
	}
	if err != nil {
		return nil, err
	}

	if err := userjs.Write(profileDir, string(content)); err != nil {
		return nil, fmt.Errorf("failed to restore %s: %w", userjs.FileName, err)
	}
	return entry, nil
}
