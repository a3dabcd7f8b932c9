package betterfox

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Upstream project coordinates.
const (
	Owner      = "yokoffing"
	Repo       = "Betterfox"
	Branch     = "main"
	TargetFile = "user.js"
)

// Compatibility describes how a Betterfox release lines up with the
// installed Firefox.
type Compatibility struct {
	BetterfoxMajor uint64 `json:"betterfox_major" yaml:"betterfox_major" toml:"betterfox_major"`
	FirefoxMajor   uint64 `json:"firefox_major" yaml:"firefox_major" toml:"firefox_major"`
	// Ahead is true when the user.js targets a newer Firefox than the one installed.
	Ahead bool `json:"ahead" yaml:"ahead" toml:"ahead"`
}

// CheckCompatibility compares the Betterfox major version with the Firefox
// major version. Betterfox releases track Firefox releases, so v128 targets
// Firefox 128.
func CheckCompatibility(betterfoxVersion, firefoxVersion string) (*Compatibility, error) {
	bf, err := lenientVersion(betterfoxVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid Betterfox version: %w", err)
	}
	fx, err := lenientVersion(firefoxVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid Firefox version: %w", err)
	}

	return &Compatibility{
		BetterfoxMajor: bf.Major(),
		FirefoxMajor:   fx.Major(),
		Ahead:          bf.Major() > fx.Major(),
	}, nil
}

// lenientVersion accepts Firefox-style strings such as "128.0.3",
// "128.0.3_20240712161037/20240712161037" or "129.0b2".
func lenientVersion(s string) (*semver.Version, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "_/ "); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexAny(s, "ab"); i > 0 {
		s = s[:i]
	}
	return semver.NewVersion(s)
}
