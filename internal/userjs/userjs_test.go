package userjs

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestNewReplacer(t *testing.T) {
	replacer := NewReplacer("/profiles/abc.default")

	want := filepath.Join("/profiles/abc.default", "user.js")
	if replacer.Target() != want {
		t.Errorf("Target() = %s, want %s", replacer.Target(), want)
	}
	if replacer.backupPath != want+".bak" {
		t.Errorf("backupPath = %s, want %s.bak", replacer.backupPath, want)
	}
}

func TestLocalVersion(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		want    string
	}{
		{"missing file", nil, ""},
		{"with marker", strPtr("// Betterfox v120.0\nuser_pref(\"a\", 1);\n"), "120.0"},
		{"without marker", strPtr("user_pref(\"a\", 1);\n"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.content != nil {
				if err := os.WriteFile(Path(dir), []byte(*tt.content), 0644); err != nil {
					t.Fatalf("Failed to write user.js: %v", err)
				}
			}
			if got := LocalVersion(dir); got != tt.want {
				t.Errorf("LocalVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func strPtr(s string) *string { return &s }

func TestStage(t *testing.T) {
	dir := t.TempDir()
	replacer := NewReplacer(dir)

	content := "// Betterfox v121.0\r\nuser_pref(\"x\", \"ü\");\n"
	staged, err := replacer.Stage(content)
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	if filepath.Dir(staged) != dir {
		t.Errorf("staged file in %s, want %s", filepath.Dir(staged), dir)
	}

	data, err := os.ReadFile(staged)
	if err != nil {
		t.Fatalf("Failed to read staged file: %v", err)
	}
	if string(data) != content {
		t.Errorf("staged content = %q, want %q", data, content)
	}

	replacer.Discard(staged)
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Error("staged file should be removed by Discard")
	}
}

func TestReplace_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(Path(dir), []byte("// Betterfox v120.0\n"), 0600); err != nil {
		t.Fatalf("Failed to write user.js: %v", err)
	}

	replacer := NewReplacer(dir)
	staged, err := replacer.Stage("// Betterfox v121.0\n")
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	if err := replacer.Replace(staged); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	if got := LocalVersion(dir); got != "121.0" {
		t.Errorf("LocalVersion() after replace = %q, want 121.0", got)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(Path(dir))
		if err != nil {
			t.Fatalf("Failed to stat user.js: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("mode = %o, want 0600", info.Mode().Perm())
		}
	}

	if _, err := os.Stat(replacer.backupPath); !os.IsNotExist(err) {
		t.Error("backup should be removed after a successful replace")
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Error("staged file should be gone after replace")
	}
}

func TestReplace_SymlinkedFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}
	dotfiles := t.TempDir()
	managed := filepath.Join(dotfiles, "user.js")
	if err := os.WriteFile(managed, []byte("// Betterfox v120.0\n"), 0644); err != nil {
		t.Fatalf("Failed to write user.js: %v", err)
	}
	dir := t.TempDir()
	if err := os.Symlink(managed, Path(dir)); err != nil {
		t.Fatalf("Symlink() error = %v", err)
	}

	replacer := NewReplacer(dir)
	staged, err := replacer.Stage("// Betterfox v121.0\n")
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if err := replacer.Replace(staged); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	info, err := os.Lstat(Path(dir))
	if err != nil {
		t.Fatalf("Lstat() error = %v", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Error("user.js link was replaced by a regular file")
	}
	data, err := os.ReadFile(managed)
	if err != nil {
		t.Fatalf("Failed to read linked file: %v", err)
	}
	if string(data) != "// Betterfox v121.0\n" {
		t.Errorf("linked file = %q, want new content", data)
	}
	if got := LocalVersion(dir); got != "121.0" {
		t.Errorf("LocalVersion() = %q, want 121.0", got)
	}
}

func TestReplace_NewFile(t *testing.T) {
	dir := t.TempDir()

	if err := Write(dir, "// Betterfox v1.0\n"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(Path(dir))
		if err != nil {
			t.Fatalf("Failed to stat user.js: %v", err)
		}
		if info.Mode().Perm() != 0644 {
			t.Errorf("mode = %o, want 0644", info.Mode().Perm())
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("profile dir has %d entries, want only user.js", len(entries))
	}
}

func TestReplace_MissingStagedFileKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	original := "// Betterfox v120.0\n"
	if err := os.WriteFile(Path(dir), []byte(original), 0644); err != nil {
		t.Fatalf("Failed to write user.js: %v", err)
	}

	replacer := NewReplacer(dir)
	if err := replacer.Replace(filepath.Join(dir, "does-not-exist.tmp")); err == nil {
		t.Fatal("expected error for missing staged file")
	}

	data, err := os.ReadFile(Path(dir))
	if err != nil {
		t.Fatalf("Failed to read user.js: %v", err)
	}
	if string(data) != original {
		t.Errorf("user.js = %q, want original %q", data, original)
	}
}

func TestRollback_NoBackup(t *testing.T) {
	replacer := NewReplacer(t.TempDir())
	if err := replacer.Rollback(); err == nil {
		t.Error("Expected error when backup doesn't exist")
	}
}

func TestRollback_Success(t *testing.T) {
	dir := t.TempDir()
	original := []byte("// Betterfox v119.0\n")
	if err := os.WriteFile(Path(dir), original, 0644); err != nil {
		t.Fatalf("Failed to write user.js: %v", err)
	}

	replacer := NewReplacer(dir)
	if err := replacer.createBackup(); err != nil {
		t.Fatalf("createBackup() error = %v", err)
	}
	if err := os.WriteFile(Path(dir), []byte("corrupted"), 0644); err != nil {
		t.Fatalf("Failed to overwrite user.js: %v", err)
	}

	if err := replacer.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	restored, err := os.ReadFile(Path(dir))
	if err != nil {
		t.Fatalf("Failed to read restored user.js: %v", err)
	}
	if string(restored) != string(original) {
		t.Errorf("Restored content mismatch")
	}
	if _, err := os.Stat(replacer.backupPath); !os.IsNotExist(err) {
		t.Error("Backup should not exist after rollback")
	}
}
