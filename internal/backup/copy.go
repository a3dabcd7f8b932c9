package backup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// copyTree copies src into dst, which must not exist. On Windows robocopy
// is tried first since it copes with files Firefox keeps open.
func copyTree(src, dst string) error {
	if runtime.GOOS == "windows" {
		if err := robocopy(src, dst); err == nil {
			return nil
		}
		_ = os.RemoveAll(dst)
	}
	return walkCopy(src, dst)
}

// robocopy exit codes 0-7 mean success with various notes; 8 and up are failures.
func robocopy(src, dst string) error {
	cmd := exec.Command("robocopy", src, dst, "/E", "/COPY:DAT", "/DCOPY:T", "/R:1", "/W:1", "/NFL", "/NDL", "/NJH", "/NJS")
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() <= 7 {
		return nil
	}
	return err
}

type dirTimes struct {
	path string
	info fs.FileInfo
}

// walkCopy copies regular files, directories and symlinks, keeping
// permission bits and modification times.
func walkCopy(src, dst string) error {
	var dirs []dirTimes

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.IsDir():
			if err := os.MkdirAll(target, info.Mode().Perm()|0700); err != nil {
				return err
			}
			dirs = append(dirs, dirTimes{path: target, info: info})
			return nil
		case d.Type().IsRegular():
			return copyFile(path, target, info)
		default:
			// Sockets, pipes and devices are not part of a profile snapshot.
			return nil
		}
	})
	if err != nil {
		return err
	}

	// Children first so setting a parent's times is not undone.
	for i := len(dirs) - 1; i >= 0; i-- {
		d := dirs[i]
		_ = os.Chmod(d.path, d.info.Mode().Perm())
		_ = os.Chtimes(d.path, d.info.ModTime(), d.info.ModTime())
	}
	return nil
}

func copyFile(src, dst string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// dirSize sums the sizes of regular files under root.
func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total, err
}
