package profile

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func makeProfile(t *testing.T, dir string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.Chtimes(dir, mtime, mtime))
}

func TestBaseDirFor(t *testing.T) {
	tests := []struct {
		goos    string
		appData string
		want    string
	}{
		{"windows", filepath.Join("C:", "Users", "me", "AppData", "Roaming"), filepath.Join("C:", "Users", "me", "AppData", "Roaming", "Mozilla", "Firefox")},
		{"darwin", "", filepath.Join("/home/me", "Library", "Application Support", "Firefox")},
		{"linux", "", filepath.Join("/home/me", ".mozilla", "firefox")},
		{"freebsd", "", filepath.Join("/home/me", ".mozilla", "firefox")},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			assert.Equal(t, tt.want, baseDirFor(tt.goos, "/home/me", tt.appData))
		})
	}
}

func TestDiscover_MissingRegistry(t *testing.T) {
	profiles, err := NewLocator(t.TempDir()).Discover()
	require.NoError(t, err)
	assert.Empty(t, profiles)
	assert.NotNil(t, profiles)
}

func TestDiscover(t *testing.T) {
	base := t.TempDir()
	absolute := filepath.Join(t.TempDir(), "elsewhere")
	now := time.Now()

	makeProfile(t, filepath.Join(base, "Profiles", "old.default"), now.Add(-48*time.Hour))
	makeProfile(t, filepath.Join(base, "Profiles", "new.default-release"), now.Add(-time.Hour))
	makeProfile(t, absolute, now.Add(-24*time.Hour))

	writeFile(t, filepath.Join(base, RegistryFile), `[General]
StartWithLastProfile=1

[Profile0]
Name=default
IsRelative=1
Path=Profiles/old.default
Default=1

[Profile1]
Name=default-release
Path=Profiles/new.default-release

[Profile2]
Name=absolute
IsRelative=0
Path=`+absolute+`

[Profile3]
Name=gone
IsRelative=1
Path=Profiles/deleted

[Profile4]
Name=broken
`)

	profiles, err := NewLocator(base).Discover()
	require.NoError(t, err)
	require.Len(t, profiles, 3)

	assert.Equal(t, "default-release", profiles[0].Name)
	assert.Equal(t, "absolute", profiles[1].Name)
	assert.Equal(t, absolute, profiles[1].Path)
	assert.Equal(t, "default", profiles[2].Name)
	assert.True(t, profiles[2].IsDefault)
	assert.False(t, profiles[0].IsDefault)
}

func TestDiscover_InstallDefault(t *testing.T) {
	base := t.TempDir()
	makeProfile(t, filepath.Join(base, "Profiles", "a"), time.Now())

	writeFile(t, filepath.Join(base, RegistryFile), `[Install4F96D1932A9F858E]
Default=Profiles/a
Locked=1

[Profile0]
Name=a
IsRelative=1
Path=Profiles/a
`)

	profiles, err := NewLocator(base).Discover()
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.True(t, profiles[0].IsDefault)
}

func TestDiscover_SymlinkedProfile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}
	base := t.TempDir()
	target := filepath.Join(t.TempDir(), "tmpfs-profile")
	makeProfile(t, target, time.Now())
	require.NoError(t, os.MkdirAll(filepath.Join(base, "Profiles"), 0755))
	require.NoError(t, os.Symlink(target, filepath.Join(base, "Profiles", "a")))

	writeFile(t, filepath.Join(base, RegistryFile), `[Profile0]
Name=a
IsRelative=1
Path=Profiles/a
Default=1
`)

	profiles, err := NewLocator(base).Discover()
	require.NoError(t, err)
	require.Len(t, profiles, 1)

	want, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, want, profiles[0].Path)
	assert.True(t, profiles[0].IsDefault)
}

func TestDefault(t *testing.T) {
	registry := `[Profile0]
Name=a
Path=Profiles/a
Default=1

[Profile1]
Name=b
Path=Profiles/b

[Profile2]
Name=c
Path=Profiles/c
`

	tests := []struct {
		name  string
		setup func(t *testing.T, base string)
		want  string
	}{
		{
			name: "locked wins",
			setup: func(t *testing.T, base string) {
				writeFile(t, filepath.Join(base, "Profiles", "b", "times.json"), `{"created": 9999999999999}`)
				writeFile(t, filepath.Join(base, "Profiles", "c", ".parentlock"), "")
			},
			want: "c",
		},
		{
			name: "newest times.json",
			setup: func(t *testing.T, base string) {
				writeFile(t, filepath.Join(base, "Profiles", "a", "times.json"), `{"created": 1600000000000}`)
				writeFile(t, filepath.Join(base, "Profiles", "b", "times.json"), `{"created": 1700000000000, "firstUse": null}`)
				writeFile(t, filepath.Join(base, "Profiles", "c", "times.json"), `not json`)
			},
			want: "b",
		},
		{
			name:  "registry default",
			setup: func(t *testing.T, base string) {},
			want:  "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			for _, n := range []string{"a", "b", "c"} {
				makeProfile(t, filepath.Join(base, "Profiles", n), time.Now())
			}
			writeFile(t, filepath.Join(base, RegistryFile), registry)
			tt.setup(t, base)

			got, err := NewLocator(base).Default()
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestDefault_NoProfiles(t *testing.T) {
	got, err := NewLocator(t.TempDir()).Default()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIsValid(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	writeFile(t, file, "x")

	assert.True(t, IsValid(dir))
	assert.False(t, IsValid(file))
	assert.False(t, IsValid(filepath.Join(dir, "missing")))
	assert.False(t, IsValid(""))
}
