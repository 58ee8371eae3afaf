// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package emmc probes eMMC host and card segments of a topology link.
package emmc

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
	"github.com/siderolabs/go-efiboot/efidp"
)

var segmentRe = regexp.MustCompile(`^mmc_host/mmc(\d+)/mmc\d+:[0-9a-f]+/`)

// Probe matches the mmc_host/mmcN/mmcN:RCA chain of an eMMC card.
type Probe struct{}

// Name returns the name of the bus.
func (p Probe) Name() string {
	return "emmc"
}

// Flags returns the probe capability flags.
func (p Probe) Flags() probe.Flags {
	return 0
}

// Match consumes the host and card segments.
func (p Probe) Match(dev *probe.Device, current string) (int, error) {
	m := segmentRe.FindStringSubmatch(current)
	if m == nil {
		return 0, nil
	}

	slot, err := strconv.ParseUint(m[1], 10, 8)
	if err != nil {
		return 0, err
	}

	dev.Interface = probe.EMMC
	dev.EMMC = probe.EMMCInfo{
		Slot: uint8(slot),
	}

	return len(m[0]), nil
}

// MakeNode encodes the eMMC slot node.
func (p Probe) MakeNode(dev *probe.Device, buf []byte) (int, error) {
	return efidp.MakeEMMC(buf, dev.EMMC.Slot)
}

// MakePartName returns the mmcblkNpP partition device name.
func (p Probe) MakePartName(dev *probe.Device) string {
	return fmt.Sprintf("%sp%d", dev.DiskName, dev.Part)
}
