// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package sysfs provides accessors for the sysfs device tree.
package sysfs

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FS is a handle to a sysfs mount.
type FS struct {
	root string
}

// New returns a handle rooted at the given directory.
func New(root string) FS {
	return FS{root: root}
}

// Default returns a handle to the system sysfs mount.
func Default() FS {
	return New("/sys")
}

// Readlink reads the symlink at the path below the sysfs root.
func (fs FS) Readlink(elem ...string) (string, error) {
	return os.Readlink(filepath.Join(append([]string{fs.root}, elem...)...))
}

// ReadFile reads a sysfs attribute, trimming trailing whitespace.
func (fs FS) ReadFile(elem ...string) (string, error) {
	contents, err := os.ReadFile(filepath.Join(append([]string{fs.root}, elem...)...))
	if err != nil {
		return "", err
	}

	return strings.TrimRight(string(contents), "\n\t "), nil
}

// ReadInt reads a decimal integer sysfs attribute.
func (fs FS) ReadInt(elem ...string) (int, error) {
	contents, err := fs.ReadFile(elem...)
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(contents)
}
