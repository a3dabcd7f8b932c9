package backup

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func agedEntry(t *testing.T, dir, name string, age time.Duration, now time.Time, isDir bool) {
	t.Helper()
	path := filepath.Join(dir, name)
	if isDir {
		if err := os.MkdirAll(filepath.Join(path, "sub"), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(path, "sub", "f"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	} else if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	mtime := now.Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestManager_Cleanup(t *testing.T) {
	backupDir := t.TempDir()
	now := time.Now()
	day := 24 * time.Hour

	agedEntry(t, backupDir, BackupPrefix+"10d", 10*day, now, true)
	agedEntry(t, backupDir, BackupPrefix+"40d.zip", 40*day, now, false)
	agedEntry(t, backupDir, BackupPrefix+"70d", 70*day, now, true)

	manager := NewManager(backupDir).WithClock(fixedClock(now))
	result, err := manager.Cleanup(60)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	if len(result.Deleted) != 1 || result.Deleted[0] != BackupPrefix+"70d" {
		t.Errorf("Deleted = %v, want [%s70d]", result.Deleted, BackupPrefix)
	}
	if result.Kept != 2 {
		t.Errorf("Kept = %d, want 2", result.Kept)
	}

	entries, _ := os.ReadDir(backupDir)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != BackupPrefix+"10d" || names[1] != BackupPrefix+"40d.zip" {
		t.Errorf("remaining = %v", names)
	}
}

func TestManager_CleanupAllEntries(t *testing.T) {
	backupDir := t.TempDir()
	now := time.Now()

	agedEntry(t, backupDir, "stray-notes.txt", 90*24*time.Hour, now, false)

	result, err := NewManager(backupDir).WithClock(fixedClock(now)).Cleanup(60)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if len(result.Deleted) != 1 {
		t.Errorf("Deleted = %v, want stray entry removed", result.Deleted)
	}
}

func TestManager_CleanupBoundary(t *testing.T) {
	backupDir := t.TempDir()
	now := time.Now()

	// 60 days and some hours is still 60 whole days.
	agedEntry(t, backupDir, BackupPrefix+"edge", 60*24*time.Hour+5*time.Hour, now, false)

	result, err := NewManager(backupDir).WithClock(fixedClock(now)).Cleanup(60)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if len(result.Deleted) != 0 || result.Kept != 1 {
		t.Errorf("result = %+v, want entry kept", result)
	}
}

func TestManager_CleanupNegative(t *testing.T) {
	if _, err := NewManager(t.TempDir()).Cleanup(-1); err == nil {
		t.Error("Cleanup(-1) expected error")
	}
}

func TestManager_CleanupMissingDir(t *testing.T) {
	result, err := NewManager(filepath.Join(t.TempDir(), "missing")).Cleanup(60)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if result.Kept != 0 || len(result.Deleted) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestAgeDays(t *testing.T) {
	now := time.Date(2024, 7, 12, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		mtime time.Time
		want  int
	}{
		{now, 0},
		{now.Add(-23 * time.Hour), 0},
		{now.Add(-25 * time.Hour), 1},
		{now.AddDate(0, 0, -70), 70},
		{now.Add(time.Hour), 0},
	}
	for _, tt := range tests {
		if got := ageDays(now, tt.mtime); got != tt.want {
			t.Errorf("ageDays(%v) = %d, want %d", tt.mtime, got, tt.want)
		}
	}
}
