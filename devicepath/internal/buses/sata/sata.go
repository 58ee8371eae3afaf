// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package sata probes AHCI/SATA segments of a topology link.
package sata

import (
	"regexp"
	"strconv"

	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
	"github.com/siderolabs/go-efiboot/efidp"
)

// directAttached is the port multiplier value for drives attached
// straight to the HBA port.
const directAttached = 0xffff

var segmentRe = regexp.MustCompile(`^ata(\d+)/host(\d+)/target(\d+):(\d+):(\d+)/(\d+):(\d+):(\d+):(\d+)/`)

// Probe matches the ataN/hostN/target/device chain of an AHCI port.
type Probe struct{}

// Name returns the name of the bus.
func (p Probe) Name() string {
	return "sata"
}

// Flags returns the probe capability flags.
func (p Probe) Flags() probe.Flags {
	return 0
}

// Match consumes the ATA chain through the SCSI device segment.
func (p Probe) Match(dev *probe.Device, current string) (int, error) {
	m := segmentRe.FindStringSubmatch(current)
	if m == nil {
		return 0, nil
	}

	// ata print IDs are 1-based, HBA ports are 0-based
	printID, err := strconv.ParseUint(m[1], 10, 16)
	if err != nil {
		return 0, err
	}

	if printID == 0 {
		return 0, nil
	}

	lun, err := strconv.ParseUint(m[9], 10, 16)
	if err != nil {
		return 0, err
	}

	dev.Interface = probe.SATA
	dev.SATA = probe.SATAInfo{
		HBAPort:        uint16(printID - 1),
		PortMultiplier: directAttached,
		LUN:            uint16(lun),
	}

	return len(m[0]), nil
}

// MakeNode encodes the SATA node.
func (p Probe) MakeNode(dev *probe.Device, buf []byte) (int, error) {
	return efidp.MakeSATA(buf, dev.SATA.HBAPort, dev.SATA.PortMultiplier, dev.SATA.LUN)
}
