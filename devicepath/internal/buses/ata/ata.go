// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package ata probes legacy IDE segments of a topology link.
package ata

import (
	"regexp"
	"strconv"

	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
	"github.com/siderolabs/go-efiboot/efidp"
)

var segmentRe = regexp.MustCompile(`^ide(\d+)/(\d+)\.(\d+)/`)

// Probe matches ideN channel and M.U unit segments of an IDE drive.
type Probe struct{}

// Name returns the name of the bus.
func (p Probe) Name() string {
	return "ata"
}

// Flags returns the probe capability flags.
func (p Probe) Flags() probe.Flags {
	return 0
}

// Match consumes the IDE channel and unit segments.
func (p Probe) Match(dev *probe.Device, current string) (int, error) {
	m := segmentRe.FindStringSubmatch(current)
	if m == nil {
		return 0, nil
	}

	channel, err := strconv.ParseUint(m[2], 10, 8)
	if err != nil {
		return 0, err
	}

	unit, err := strconv.ParseUint(m[3], 10, 8)
	if err != nil {
		return 0, err
	}

	dev.Interface = probe.ATAPI
	dev.SCSI = probe.SCSIInfo{
		Bus:    uint32(channel),
		Target: uint32(unit),
	}

	return len(m[0]), nil
}

// MakeNode encodes the ATAPI node; the channel selects primary or
// secondary, the unit selects master or slave.
func (p Probe) MakeNode(dev *probe.Device, buf []byte) (int, error) {
	return efidp.MakeATAPI(buf, byte(dev.SCSI.Bus&1), byte(dev.SCSI.Target&1), 0)
}
