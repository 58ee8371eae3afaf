// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package partitioning implements common partition naming functions.
package partitioning

import "strconv"

// DevName returns the devname for the partition on a disk.
func DevName(device string, part uint) string {
	result := device

	if len(result) > 0 && result[len(result)-1] >= '0' && result[len(result)-1] <= '9' {
		result += "p"
	}

	return result + strconv.FormatUint(uint64(part), 10)
}

// Split breaks a partition devname into the disk devname and the 1-based
// partition number.
//
// Split is the inverse of DevName by naming convention only: it is a
// heuristic for platforms with no device topology introspection. A name
// without a partition suffix is a whole disk and returns part 0.
func Split(devname string) (disk string, part uint) {
	i := len(devname)

	for i > 0 && devname[i-1] >= '0' && devname[i-1] <= '9' {
		i--
	}

	if i == 0 || i == len(devname) {
		// all digits or no digit suffix, a whole disk
		return devname, 0
	}

	n, err := strconv.ParseUint(devname[i:], 10, 32)
	if err != nil || n == 0 {
		// partition numbers are 1-based, "loop0" names a whole disk
		return devname, 0
	}

	// nvme0n1p2 and mmcblk0p3 style: strip the "p" separator when it
	// follows a digit
	if devname[i-1] == 'p' && i > 1 && devname[i-2] >= '0' && devname[i-2] <= '9' {
		return devname[:i-1], uint(n)
	}

	// nvme0n1 style: a digit-"n"-digit tail is a namespace, not a partition
	if devname[i-1] == 'n' && i > 1 && devname[i-2] >= '0' && devname[i-2] <= '9' {
		return devname, 0
	}

	return devname[:i], uint(n)
}
