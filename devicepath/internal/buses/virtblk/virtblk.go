// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package virtblk probes virtio block device segments.
package virtblk

import (
	"regexp"

	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
)

// virtio disks sit directly behind their PCI function, so the PCI chain
// alone identifies them and no extra node is produced.
var segmentRe = regexp.MustCompile(`^virtio[0-9a-f]+/`)

// Probe matches the virtioN bridge segment.
type Probe struct{}

// Name returns the name of the bus.
func (p Probe) Name() string {
	return "virtblk"
}

// Flags returns the probe capability flags.
func (p Probe) Flags() probe.Flags {
	return 0
}

// Match consumes the virtio segment and marks the device interface.
func (p Probe) Match(dev *probe.Device, current string) (int, error) {
	m := segmentRe.FindString(current)
	if m == "" {
		return 0, nil
	}

	dev.Interface = probe.VirtBlk

	return len(m), nil
}
