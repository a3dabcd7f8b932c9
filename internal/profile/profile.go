// Package profile locates and inspects Firefox profiles.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/Jeffail/gabs"
	"gopkg.in/ini.v1"
)

// RegistryFile is the profile registry inside the Firefox base directory.
const RegistryFile = "profiles.ini"

// Lock files Firefox keeps in a profile while it is running.
var lockFiles = []string{"lock", ".parentlock"}

// Profile is one entry of the profile registry.
type Profile struct {
	Name      string    `json:"name" yaml:"name" toml:"name"`
	Path      string    `json:"path" yaml:"path" toml:"path"`
	IsDefault bool      `json:"default" yaml:"default" toml:"default"`
	Locked    bool      `json:"locked" yaml:"locked" toml:"locked"`
	ModTime   time.Time `json:"modified" yaml:"modified" toml:"modified"`
}

// DefaultBaseDir returns the Firefox data directory for the current OS.
func DefaultBaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return baseDirFor(runtime.GOOS, home, os.Getenv("APPDATA")), nil
}

func baseDirFor(goos, home, appData string) string {
	switch goos {
	case "windows":
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "Mozilla", "Firefox")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Firefox")
	default:
		return filepath.Join(home, ".mozilla", "firefox")
	}
}

// Locator reads the profile registry under a base directory.
type Locator struct {
	baseDir string
}

// NewLocator creates a locator for baseDir.
func NewLocator(baseDir string) *Locator {
	return &Locator{baseDir: baseDir}
}

// BaseDir returns the directory holding profiles.ini.
func (l *Locator) BaseDir() string {
	return l.baseDir
}

// Discover lists the registered profiles that exist on disk, most recently
// modified first. A missing registry yields an empty list.
func (l *Locator) Discover() ([]Profile, error) {
	registry := filepath.Join(l.baseDir, RegistryFile)
	if _, err := os.Stat(registry); errors.Is(err, os.ErrNotExist) {
		return []Profile{}, nil
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{Loose: true, SkipUnrecognizableLines: true}, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", registry, err)
	}

	// Firefox 67+ records the default per installation.
	installDefaults := make(map[string]bool)
	for _, sec := range cfg.Sections() {
		if strings.HasPrefix(sec.Name(), "Install") {
			if p := sec.Key("Default").String(); p != "" {
				installDefaults[p] = true
			}
		}
	}

	profiles := []Profile{}
	for _, sec := range cfg.Sections() {
		if !strings.HasPrefix(sec.Name(), "Profile") {
			continue
		}
		raw := sec.Key("Path").String()
		if raw == "" {
			continue
		}

		path := raw
		if sec.Key("IsRelative").MustInt(1) == 1 {
			path = filepath.Join(l.baseDir, filepath.FromSlash(raw))
		}
		path, err = filepath.Abs(path)
		if err != nil {
			continue
		}
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			path = resolved
		}

		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			continue
		}

		profiles = append(profiles, Profile{
			Name:      sec.Key("Name").String(),
			Path:      path,
			IsDefault: sec.Key("Default").MustInt(0) == 1 || installDefaults[raw],
			Locked:    IsLocked(path),
			ModTime:   info.ModTime(),
		})
	}

	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].ModTime.After(profiles[j].ModTime)
	})
	return profiles, nil
}

// Default picks the profile most likely in use: a locked one, then the
// most recently created according to times.json, then the registry
// default, then the first listed. It returns nil when none exist.
func (l *Locator) Default() (*Profile, error) {
	profiles, err := l.Discover()
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}

	for i := range profiles {
		if profiles[i].Locked {
			return &profiles[i], nil
		}
	}

	var newest *Profile
	var newestCreated float64
	for i := range profiles {
		created, ok := createdAt(profiles[i].Path)
		if ok && created > newestCreated {
			newestCreated = created
			newest = &profiles[i]
		}
	}
	if newest != nil {
		return newest, nil
	}

	for i := range profiles {
		if profiles[i].IsDefault {
			return &profiles[i], nil
		}
	}
	return &profiles[0], nil
}

// createdAt reads the "created" timestamp from times.json.
func createdAt(dir string) (float64, bool) {
	data, err := os.ReadFile(filepath.Join(dir, "times.json"))
	if err != nil {
		return 0, false
	}
	parsed, err := gabs.ParseJSON(data)
	if err != nil {
		return 0, false
	}
	created, ok := parsed.Path("created").Data().(float64)
	return created, ok
}

// IsLocked reports whether Firefox holds a lock on the profile.
func IsLocked(dir string) bool {
	for _, name := range lockFiles {
		if _, err := os.Lstat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// IsValid reports whether path is an existing directory.
func IsValid(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
