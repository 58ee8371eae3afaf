// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package scsi probes plain SCSI host/target segments of a topology link.
package scsi

import (
	"regexp"
	"strconv"

	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
	"github.com/siderolabs/go-efiboot/efidp"
)

var segmentRe = regexp.MustCompile(`^host(\d+)/target(\d+):(\d+):(\d+)/(\d+):(\d+):(\d+):(\d+)/`)

// Probe matches the generic SCSI chain. It runs after the SAS and SATA
// probes, so only plain parallel SCSI and SCSI-like transports reach it.
type Probe struct{}

// Name returns the name of the bus.
func (p Probe) Name() string {
	return "scsi"
}

// Flags returns the probe capability flags.
func (p Probe) Flags() probe.Flags {
	return 0
}

// Match consumes the host/target/device chain.
func (p Probe) Match(dev *probe.Device, current string) (int, error) {
	m := segmentRe.FindStringSubmatch(current)
	if m == nil {
		return 0, nil
	}

	host, err := strconv.ParseUint(m[5], 10, 32)
	if err != nil {
		return 0, err
	}

	bus, err := strconv.ParseUint(m[6], 10, 32)
	if err != nil {
		return 0, err
	}

	target, err := strconv.ParseUint(m[7], 10, 32)
	if err != nil {
		return 0, err
	}

	lun, err := strconv.ParseUint(m[8], 10, 64)
	if err != nil {
		return 0, err
	}

	dev.Interface = probe.SCSI
	dev.SCSI = probe.SCSIInfo{
		Host:   uint32(host),
		Bus:    uint32(bus),
		Target: uint32(target),
		LUN:    lun,
	}

	return len(m[0]), nil
}

// MakeNode encodes the SCSI node.
func (p Probe) MakeNode(dev *probe.Device, buf []byte) (int, error) {
	return efidp.MakeSCSI(buf, uint16(dev.SCSI.Target), uint16(dev.SCSI.LUN))
}
