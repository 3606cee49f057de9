// Package voicecache manages the on-disk scratch directory for downloaded
// voice notes awaiting transcription. Files are transient; the cache is
// pruned on every sweep and owned exclusively by the current user.
package voicecache

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"
)

// Ensure creates the cache directory with 0700 perms and refuses symlinked
// or foreign-owned paths, so a hostile shared tmp cannot intercept voice
// recordings.
func Ensure(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return fmt.Errorf("empty cache dir")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	dir = abs

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	fi, err := os.Lstat(dir)
	if err != nil {
		return err
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("refusing symlink path: %s", dir)
	}
	if !fi.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok || st == nil {
		return fmt.Errorf("unsupported stat for: %s", dir)
	}
	if st.Uid != uint32(os.Getuid()) {
		return fmt.Errorf("cache dir not owned by current user (owner uid=%d): %s", st.Uid, dir)
	}
	if perm := fi.Mode().Perm(); perm != 0o700 {
		if err := os.Chmod(dir, 0o700); err != nil {
			return fmt.Errorf("cache dir has insecure perms (%#o) and chmod failed: %w", perm, err)
		}
	}
	return nil
}

type entry struct {
	path    string
	modTime time.Time
	size    int64
}

// Sweep removes files older than maxAge and then prunes oldest-first until
// at most maxFiles remain. Zero disables either limit.
func Sweep(dir string, maxAge time.Duration, maxFiles int) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return fmt.Errorf("missing dir")
	}
	if maxAge <= 0 && maxFiles <= 0 {
		return nil
	}
	now := time.Now()

	var kept []entry
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&os.ModeSymlink != 0 || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if maxAge > 0 && now.Sub(info.ModTime()) > maxAge {
			_ = os.Remove(path)
			return nil
		}
		kept = append(kept, entry{path: path, modTime: info.ModTime(), size: info.Size()})
		return nil
	})
	if walkErr != nil && !os.IsNotExist(walkErr) {
		return walkErr
	}

	if maxFiles > 0 && len(kept) > maxFiles {
		sort.Slice(kept, func(i, j int) bool { return kept[i].modTime.Before(kept[j].modTime) })
		for _, old := range kept[:len(kept)-maxFiles] {
			_ = os.Remove(old.path)
		}
	}
	return nil
}
