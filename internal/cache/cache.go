// Package cache keeps fetched pages and generated summaries on disk so that
// repeated runs over the same page avoid network round trips.
package cache

import (
	"errors"
	"os"
)

// ErrNoDir is returned when a cache is used without a directory.
var ErrNoDir = errors.New("cache dir not configured")

// ensureDir creates dir, tightening an existing directory to 0700 when strict
// permissions are requested.
func ensureDir(dir string, strict bool) error {
	if dir == "" {
		return ErrNoDir
	}
	perm := os.FileMode(0o755)
	if strict {
		perm = 0o700
	}
	if err := os.MkdirAll(dir, perm); err != nil {
		return err
	}
	if strict {
		if info, err := os.Stat(dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(dir, 0o700)
		}
	}
	return nil
}

func fileMode(strict bool) os.FileMode {
	if strict {
		return 0o600
	}
	return 0o644
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte, mode os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
