// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package devicepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
	"k8s.io/mount-utils"
)

// statFunc substitutes device number lookups in tests.
type statFunc func(path string) (*unix.Stat_t, error)

func unixStat(path string) (*unix.Stat_t, error) {
	var st unix.Stat_t

	if err := unix.Stat(path, &st); err != nil {
		return nil, &os.PathError{Op: "stat", Path: path, Err: err}
	}

	return &st, nil
}

// findFile locates the mounted filesystem containing filePath and
// splits it into the backing block device node and the path relative to
// the mountpoint.
//
// When several mounts contain the path, the one with the longest
// mountpoint wins, so a file under /boot/efi resolves to the ESP and
// not to the root filesystem.
func findFile(mounter mount.Interface, stat statFunc, filePath string) (devNode, relPath string, err error) {
	abs, err := canonicalize(filePath)
	if err != nil {
		return "", "", err
	}

	st, err := stat(abs)
	if err != nil {
		return "", "", fmt.Errorf("locating %q: %w", filePath, err)
	}

	mounts, err := mounter.List()
	if err != nil {
		return "", "", fmt.Errorf("listing mounts: %w", err)
	}

	var bestDev, bestDir string

	for _, mp := range mounts {
		device := mp.Device

		// mount sources like 'tmpfs' or bare device names have no slash
		if !strings.HasPrefix(device, "/") {
			device = "/dev/" + device
		}

		dst, err := stat(device)
		if err != nil || dst.Mode&unix.S_IFMT != unix.S_IFBLK {
			continue
		}

		if dst.Rdev != st.Dev {
			continue
		}

		if !isPathPrefix(mp.Path, abs) {
			continue
		}

		if len(mp.Path) > len(bestDir) {
			bestDir, bestDev = mp.Path, device
		}
	}

	if bestDev == "" {
		return "", "", fmt.Errorf("%w: %q", ErrNoMountpoint, filePath)
	}

	relPath = strings.TrimPrefix(strings.TrimPrefix(abs, bestDir), "/")

	return bestDev, relPath, nil
}

// canonicalize makes the path absolute and resolves all symlinks.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", path, err)
	}

	if len(resolved) >= unix.PathMax {
		return "", fmt.Errorf("%w: %q", ErrNameTooLong, path)
	}

	return resolved, nil
}

// isPathPrefix reports whether dir contains path in the filesystem
// hierarchy sense.
func isPathPrefix(dir, path string) bool {
	if dir == "/" {
		return true
	}

	return path == dir || strings.HasPrefix(path, dir+"/")
}
