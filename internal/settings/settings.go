// Package settings persists user preferences in a TOML file.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/adamancini/betterfox-updater/internal/betterfox"
	"github.com/adamancini/betterfox-updater/internal/remote"
	"github.com/adamancini/betterfox-updater/internal/types"
)

const (
	// HomeEnv overrides the application directory.
	HomeEnv = "BETTERFOX_UPDATER_HOME"

	// FileName is the settings file inside the application directory.
	FileName = "config.toml"

	appDirName     = "betterfox-updater"
	windowsDirName = "BetterfoxUpdater"
)

// Setting keys.
const (
	KeyProfilePath    = "general.profile_path"
	KeyBackupFolder   = "general.backup_folder"
	KeyTheme          = "general.theme"
	KeyAutoRestart    = "general.auto_restart"
	KeyAutoBackup     = "general.auto_backup"
	KeyCompressBackup = "general.compress_backup"
	KeyRetentionDays  = "general.retention_days"
	KeyProxy          = "network.proxy"
	KeyTimeout        = "network.timeout"
	KeyRetries        = "network.retries"
	KeyRawURL         = "remote.raw_url"
	KeyCommitsURL     = "remote.commits_url"
	KeyTrackedPath    = "remote.tracked_path"
	KeyProcessName    = "browser.process_name"
	KeyBinary         = "browser.binary"
)

type kind int

const (
	kindString kind = iota
	kindFlag
	kindInt
)

type keyDef struct {
	key  string
	kind kind
	min  int
	def  func(home string) any
}

func constant(v any) func(string) any { return func(string) any { return v } }

var keyDefs = []keyDef{
	{key: KeyProfilePath, def: constant("")},
	{key: KeyBackupFolder, def: func(home string) any { return filepath.Join(home, "backups") }},
	{key: KeyTheme, def: constant("system")},
	{key: KeyAutoRestart, kind: kindFlag, def: constant("yes")},
	{key: KeyAutoBackup, kind: kindFlag, def: constant("yes")},
	{key: KeyCompressBackup, kind: kindFlag, def: constant("yes")},
	{key: KeyRetentionDays, kind: kindInt, min: 0, def: constant(60)},
	{key: KeyProxy, def: constant("")},
	{key: KeyTimeout, kind: kindInt, min: 1, def: constant(int(types.DefaultTimeout / time.Second))},
	{key: KeyRetries, kind: kindInt, min: 0, def: constant(types.DefaultRetries)},
	{key: KeyRawURL, def: constant(remote.DefaultRawURL)},
	{key: KeyCommitsURL, def: constant(remote.DefaultCommitsURL)},
	{key: KeyTrackedPath, def: constant(betterfox.TargetFile)},
	{key: KeyProcessName, def: constant("firefox")},
	{key: KeyBinary, def: constant("")},
}

func lookup(key string) (keyDef, bool) {
	for _, d := range keyDefs {
		if d.key == key {
			return d, true
		}
	}
	return keyDef{}, false
}

// Keys returns every known setting key in a stable order.
func Keys() []string {
	keys := make([]string, len(keyDefs))
	for i, d := range keyDefs {
		keys[i] = d.key
	}
	return keys
}

// Home returns the application directory.
func Home() (string, error) {
	if h := os.Getenv(HomeEnv); h != "" {
		return h, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return homeFor(runtime.GOOS, os.Getenv, userHome), nil
}

func homeFor(goos string, getenv func(string) string, userHome string) string {
	if goos == "windows" {
		if local := getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, windowsDirName)
		}
		return filepath.Join(userHome, "AppData", "Local", windowsDirName)
	}
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	return filepath.Join(userHome, ".config", appDirName)
}

// Settings is a typed snapshot of the store.
type Settings struct {
	ProfilePath    string              `json:"profile_path" yaml:"profile_path" toml:"profile_path"`
	BackupFolder   string              `json:"backup_folder" yaml:"backup_folder" toml:"backup_folder"`
	Theme          string              `json:"theme" yaml:"theme" toml:"theme"`
	AutoRestart    bool                `json:"auto_restart" yaml:"auto_restart" toml:"auto_restart"`
	AutoBackup     bool                `json:"auto_backup" yaml:"auto_backup" toml:"auto_backup"`
	CompressBackup bool                `json:"compress_backup" yaml:"compress_backup" toml:"compress_backup"`
	RetentionDays  int                 `json:"retention_days" yaml:"retention_days" toml:"retention_days"`
	Network        types.NetworkConfig `json:"network" yaml:"network" toml:"network"`
	RawURL         string              `json:"raw_url" yaml:"raw_url" toml:"raw_url"`
	CommitsURL     string              `json:"commits_url" yaml:"commits_url" toml:"commits_url"`
	TrackedPath    string              `json:"tracked_path" yaml:"tracked_path" toml:"tracked_path"`
	ProcessName    string              `json:"process_name" yaml:"process_name" toml:"process_name"`
	Binary         string              `json:"binary" yaml:"binary" toml:"binary"`
}

// Entry is one key/value pair for listing.
type Entry struct {
	Key   string `json:"key" yaml:"key" toml:"key"`
	Value string `json:"value" yaml:"value" toml:"value"`
}

// Store is the file-backed settings store. It is safe for concurrent use;
// the last write wins.
type Store struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
	home string
}

// Open loads the settings file at path (the default location when empty).
// A missing file, or one missing any known key, is completed with defaults
// and written back immediately.
func Open(path string) (*Store, error) {
	var home string
	if path == "" {
		h, err := Home()
		if err != nil {
			return nil, err
		}
		home = h
		path = filepath.Join(home, FileName)
	} else {
		home = filepath.Dir(path)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigFile(path)
	for _, d := range keyDefs {
		v.SetDefault(d.key, d.def(home))
	}

	dirty := false
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		dirty = true
	case err != nil:
		return nil, fmt.Errorf("stat %s: %w", path, err)
	case info.IsDir():
		return nil, fmt.Errorf("settings path %s is a directory", path)
	default:
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for _, d := range keyDefs {
			if !v.InConfig(d.key) {
				dirty = true
				break
			}
		}
	}

	s := &Store{v: v, path: path, home: home}
	if dirty {
		if err := s.save(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return s.path
}

// Home returns the directory holding the settings file.
func (s *Store) Home() string {
	return s.home
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Get returns the value of key as a string.
func (s *Store) Get(key string) (string, error) {
	if _, ok := lookup(key); !ok {
		return "", ValidationError{Field: key, Message: "unknown setting"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetString(key), nil
}

// Bool returns a yes/no setting; unparseable values yield the default.
func (s *Store) Bool(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boolLocked(key)
}

func (s *Store) boolLocked(key string) bool {
	if b, err := ParseFlag(s.v.GetString(key)); err == nil {
		return b
	}
	def, _ := lookup(key)
	b, _ := ParseFlag(fmt.Sprint(def.def(s.home)))
	return b
}

// Int returns an integer setting; invalid values yield the default.
func (s *Store) Int(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intLocked(key)
}

func (s *Store) intLocked(key string) int {
	def, _ := lookup(key)
	n, err := strconv.Atoi(s.v.GetString(key))
	if err != nil || n < def.min {
		fallback, _ := def.def(s.home).(int)
		return fallback
	}
	return n
}

// Set validates and persists one setting.
func (s *Store) Set(key, value string) error {
	normalized, err := normalize(key, value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, normalized)
	return s.save()
}

// SetNetwork persists proxy, timeout and retries together.
func (s *Store) SetNetwork(cfg types.NetworkConfig) error {
	if cfg.Timeout < time.Second {
		return ValidationError{Field: KeyTimeout, Message: "must be >= 1 second"}
	}
	if cfg.Retries < 0 {
		return ValidationError{Field: KeyRetries, Message: "must be >= 0"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(KeyProxy, cfg.Proxy)
	s.v.Set(KeyTimeout, int(cfg.Timeout/time.Second))
	s.v.Set(KeyRetries, cfg.Retries)
	return s.save()
}

// Network returns the persisted network options.
func (s *Store) Network() types.NetworkConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.networkLocked()
}

func (s *Store) networkLocked() types.NetworkConfig {
	return types.NetworkConfig{
		Proxy:   s.v.GetString(KeyProxy),
		Timeout: time.Duration(s.intLocked(KeyTimeout)) * time.Second,
		Retries: s.intLocked(KeyRetries),
	}.Normalize()
}

// Snapshot returns all settings as typed values.
func (s *Store) Snapshot() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Settings{
		ProfilePath:    s.v.GetString(KeyProfilePath),
		BackupFolder:   s.v.GetString(KeyBackupFolder),
		Theme:          s.v.GetString(KeyTheme),
		AutoRestart:    s.boolLocked(KeyAutoRestart),
		AutoBackup:     s.boolLocked(KeyAutoBackup),
		CompressBackup: s.boolLocked(KeyCompressBackup),
		RetentionDays:  s.intLocked(KeyRetentionDays),
		Network:        s.networkLocked(),
		RawURL:         s.v.GetString(KeyRawURL),
		CommitsURL:     s.v.GetString(KeyCommitsURL),
		TrackedPath:    s.v.GetString(KeyTrackedPath),
		ProcessName:    s.v.GetString(KeyProcessName),
		Binary:         s.v.GetString(KeyBinary),
	}
}

// Entries lists every known key with its current value, sorted by key.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]Entry, 0, len(keyDefs))
	for _, d := range keyDefs {
		entries = append(entries, Entry{Key: d.key, Value: s.v.GetString(d.key)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}
