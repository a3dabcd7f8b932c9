package profile

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/adamancini/betterfox-updater/internal/userjs"
)

// CompatibilityFile records the Firefox build that last used a profile.
const CompatibilityFile = "compatibility.ini"

// Info summarizes a profile directory.
type Info struct {
	Path           string `json:"path" yaml:"path" toml:"path"`
	Valid          bool   `json:"valid" yaml:"valid" toml:"valid"`
	HasUserJS      bool   `json:"has_user_js" yaml:"has_user_js" toml:"has_user_js"`
	HasCompat      bool   `json:"has_compatibility_ini" yaml:"has_compatibility_ini" toml:"has_compatibility_ini"`
	Locked         bool   `json:"locked" yaml:"locked" toml:"locked"`
	LocalVersion   string `json:"local_version" yaml:"local_version" toml:"local_version"`
	FirefoxVersion string `json:"firefox_version" yaml:"firefox_version" toml:"firefox_version"`
}

// Inspect gathers what is known about the profile at dir.
func Inspect(dir string) Info {
	info := Info{Path: dir, Valid: IsValid(dir)}
	if !info.Valid {
		return info
	}

	if _, err := os.Stat(userjs.Path(dir)); err == nil {
		info.HasUserJS = true
		info.LocalVersion = userjs.LocalVersion(dir)
	}
	if _, err := os.Stat(filepath.Join(dir, CompatibilityFile)); err == nil {
		info.HasCompat = true
	}
	info.Locked = IsLocked(dir)
	info.FirefoxVersion = FirefoxVersion(dir)
	return info
}

// FirefoxVersion returns the Firefox version recorded in the profile's
// compatibility.ini, or "" when unknown.
func FirefoxVersion(dir string) string {
	cfg, err := ini.LoadSources(ini.LoadOptions{Loose: true, SkipUnrecognizableLines: true}, filepath.Join(dir, CompatibilityFile))
	if err != nil {
		return ""
	}

	for _, name := range []string{"Application", "App"} {
		if sec, err := cfg.GetSection(name); err == nil && sec.HasKey("Version") {
			if v := strings.TrimSpace(sec.Key("Version").String()); v != "" {
				return v
			}
		}
	}

	// LastVersion looks like "128.0.3_20240712161037/20240712161037".
	if sec, err := cfg.GetSection("Compatibility"); err == nil {
		last := sec.Key("LastVersion").String()
		if v, _, _ := strings.Cut(last, "_"); strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
