package backup

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
)

// makeProfileDir builds a small profile tree and returns its path.
func makeProfileDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "abc.default-release")
	files := map[string]string{
		"user.js":                "// Betterfox v120.0\n",
		"prefs.js":               "user_pref(\"a\", 1);\n",
		"times.json":             `{"created": 1700000000000}`,
		"storage/default/readme": "nested",
		"extensions/ublock.xpi":  strings.Repeat("x", 4096),
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return dir
}

// relFiles lists regular files under root as slash paths.
func relFiles(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			rel, _ := filepath.Rel(root, path)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	sort.Strings(out)
	return out
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestManager_Create(t *testing.T) {
	profile := makeProfileDir(t)
	backupDir := filepath.Join(t.TempDir(), "backups")

	var logs []string
	manager := NewManager(backupDir)
	path, err := manager.Create(profile, Options{
		RetentionDays: DefaultRetentionDays,
		Log:           func(s string) { logs = append(logs, s) },
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !strings.HasPrefix(filepath.Base(path), BackupPrefix) {
		t.Errorf("Create() path = %s, want %s prefix", path, BackupPrefix)
	}

	got := relFiles(t, path)
	want := relFiles(t, profile)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("backup files = %v, want %v", got, want)
	}

	original, _ := os.ReadFile(filepath.Join(profile, "user.js"))
	copied, err := os.ReadFile(filepath.Join(path, "user.js"))
	if err != nil {
		t.Fatalf("Failed to read copied user.js: %v", err)
	}
	if string(copied) != string(original) {
		t.Errorf("copied user.js = %q, want %q", copied, original)
	}

	if len(logs) == 0 || logs[len(logs)-1] != "[ok] Backup completed" {
		t.Errorf("last log line = %v, want [ok] Backup completed", logs)
	}
}

func TestManager_CreatePreservesModTime(t *testing.T) {
	profile := makeProfileDir(t)
	old := time.Now().Add(-72 * time.Hour).Truncate(time.Second)
	if err := os.Chtimes(filepath.Join(profile, "prefs.js"), old, old); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	path, err := NewManager(t.TempDir()).Create(profile, Options{RetentionDays: 60})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(path, "prefs.js"))
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if !info.ModTime().Equal(old) {
		t.Errorf("mtime = %v, want %v", info.ModTime(), old)
	}
}

func TestManager_CreateSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}
	profile := makeProfileDir(t)
	if err := os.Symlink("127.0.0.1:+4242", filepath.Join(profile, "lock")); err != nil {
		t.Fatalf("Symlink() error = %v", err)
	}

	path, err := NewManager(t.TempDir()).Create(profile, Options{RetentionDays: 60})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	link, err := os.Readlink(filepath.Join(path, "lock"))
	if err != nil {
		t.Fatalf("Readlink() error = %v", err)
	}
	if link != "127.0.0.1:+4242" {
		t.Errorf("link target = %s, want 127.0.0.1:+4242", link)
	}
}

func TestManager_CreateSymlinkedProfile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}

	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "compressed"
		}
		t.Run(name, func(t *testing.T) {
			profile := makeProfileDir(t)
			past := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
			if err := os.Chtimes(profile, past, past); err != nil {
				t.Fatalf("Chtimes() error = %v", err)
			}
			link := filepath.Join(t.TempDir(), "abc.default-release")
			if err := os.Symlink(profile, link); err != nil {
				t.Fatalf("Symlink() error = %v", err)
			}

			path, err := NewManager(t.TempDir()).Create(link, Options{Compress: compress, RetentionDays: 60})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			info, err := os.Lstat(path)
			if err != nil {
				t.Fatalf("Lstat() error = %v", err)
			}
			if info.Mode()&os.ModeSymlink != 0 {
				t.Fatalf("backup %s is a symlink, want a copy", path)
			}

			var got []string
			if compress {
				zr, err := zip.OpenReader(path)
				if err != nil {
					t.Fatalf("OpenReader() error = %v", err)
				}
				defer func() { _ = zr.Close() }()
				for _, f := range zr.File {
					if !f.FileInfo().IsDir() {
						got = append(got, f.Name)
					}
				}
				sort.Strings(got)
			} else {
				got = relFiles(t, path)
			}
			if want := relFiles(t, profile); strings.Join(got, ",") != strings.Join(want, ",") {
				t.Errorf("backup files = %v, want %v", got, want)
			}

			live, err := os.Stat(profile)
			if err != nil {
				t.Fatalf("Stat() error = %v", err)
			}
			if !live.ModTime().Equal(past) {
				t.Errorf("live profile mtime = %v, want unchanged %v", live.ModTime(), past)
			}
		})
	}
}

func TestManager_CreateCompressed(t *testing.T) {
	profile := makeProfileDir(t)
	backupDir := t.TempDir()

	path, err := NewManager(backupDir).Create(profile, Options{Compress: true, RetentionDays: 60})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if filepath.Ext(path) != ".zip" {
		t.Errorf("Create() path = %s, want .zip", path)
	}

	entries, err := os.ReadDir(backupDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].IsDir() {
		t.Fatalf("backup dir entries = %v, want exactly one archive", entries)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer func() { _ = zr.Close() }()

	var names []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
		if f.Name == "extensions/ublock.xpi" {
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			data, _ := io.ReadAll(rc)
			_ = rc.Close()
			if len(data) != 4096 {
				t.Errorf("archived xpi size = %d, want 4096", len(data))
			}
		}
	}
	sort.Strings(names)

	want := relFiles(t, profile)
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("archive files = %v, want %v", names, want)
	}
}

func TestManager_CreateSameSecond(t *testing.T) {
	profile := makeProfileDir(t)
	manager := NewManager(t.TempDir()).WithClock(fixedClock(time.Now()))

	if _, err := manager.Create(profile, Options{Compress: true, RetentionDays: 60}); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	_, err := manager.Create(profile, Options{RetentionDays: 60})
	if !errors.Is(err, ErrBackupExists) {
		t.Errorf("second Create() error = %v, want ErrBackupExists", err)
	}
}

func TestManager_CreateMissingProfile(t *testing.T) {
	backupDir := t.TempDir()
	_, err := NewManager(backupDir).Create(filepath.Join(t.TempDir(), "missing"), Options{})
	if err == nil {
		t.Fatal("Create() expected error for missing profile")
	}

	entries, _ := os.ReadDir(backupDir)
	if len(entries) != 0 {
		t.Errorf("backup dir should stay empty, has %d entries", len(entries))
	}
}

func TestManager_List(t *testing.T) {
	backupDir := t.TempDir()
	names := []string{
		BackupPrefix + "2024-01-01_10-00-00",
		BackupPrefix + "2024-03-01_10-00-00.zip",
		BackupPrefix + "2024-02-01_10-00-00",
		"unrelated.txt",
		BackupPrefix + "2024-04-01_10-00-00.tar",
	}
	for _, name := range names {
		path := filepath.Join(backupDir, name)
		if strings.Contains(name, ".") {
			if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(path, "user.js"), []byte("12345"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	backups, err := NewManager(backupDir).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("List() count = %d, want 3", len(backups))
	}

	wantIDs := []string{
		BackupPrefix + "2024-03-01_10-00-00",
		BackupPrefix + "2024-02-01_10-00-00",
		BackupPrefix + "2024-01-01_10-00-00",
	}
	for i, id := range wantIDs {
		if backups[i].ID != id {
			t.Errorf("List()[%d].ID = %s, want %s", i, backups[i].ID, id)
		}
	}
	if !backups[0].Compressed || backups[1].Compressed {
		t.Error("Compressed flag mismatch")
	}
	if backups[1].Size != 5 {
		t.Errorf("directory backup size = %d, want 5", backups[1].Size)
	}
}

func TestManager_ListEmpty(t *testing.T) {
	backups, err := NewManager(filepath.Join(t.TempDir(), "none")).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("List() count = %d, want 0", len(backups))
	}
}

func TestManager_GetAndDelete(t *testing.T) {
	profile := makeProfileDir(t)
	manager := NewManager(t.TempDir())

	path, err := manager.Create(profile, Options{Compress: true, RetentionDays: 60})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	latest, err := manager.Get("latest")
	if err != nil {
		t.Fatalf("Get(latest) error = %v", err)
	}
	if latest.Path != path {
		t.Errorf("Get(latest).Path = %s, want %s", latest.Path, path)
	}

	byName, err := manager.Get(filepath.Base(path))
	if err != nil {
		t.Fatalf("Get(name) error = %v", err)
	}
	if byName.ID != latest.ID {
		t.Errorf("Get(name).ID = %s, want %s", byName.ID, latest.ID)
	}

	if err := manager.Delete(latest.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := manager.Get("latest"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(latest) after delete error = %v, want ErrNotFound", err)
	}
	if err := manager.Delete("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(nope) error = %v, want ErrNotFound", err)
	}
}

func TestManager_RestoreUserJS(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "directory"
		if compress {
			name = "zip"
		}
		t.Run(name, func(t *testing.T) {
			profile := makeProfileDir(t)
			manager := NewManager(t.TempDir())

			if _, err := manager.Create(profile, Options{Compress: compress, RetentionDays: 60}); err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			if err := os.WriteFile(filepath.Join(profile, "user.js"), []byte("// Betterfox v999.0\n"), 0644); err != nil {
				t.Fatal(err)
			}

			if _, err := manager.RestoreUserJS("latest", profile); err != nil {
				t.Fatalf("RestoreUserJS() error = %v", err)
			}

			data, err := os.ReadFile(filepath.Join(profile, "user.js"))
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != "// Betterfox v120.0\n" {
				t.Errorf("restored user.js = %q", data)
			}
		})
	}
}

func TestManager_RestoreUserJSMissing(t *testing.T) {
	backupDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(backupDir, BackupPrefix+"2024-01-01_10-00-00"), 0755); err != nil {
		t.Fatal(err)
	}

	_, err := NewManager(backupDir).RestoreUserJS("latest", t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("RestoreUserJS() error = %v, want ErrNotFound", err)
	}
}
