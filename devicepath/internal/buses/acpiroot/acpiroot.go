// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package acpiroot probes the ACPI root complex of a topology link.
package acpiroot

import (
	"regexp"
	"strconv"

	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
	"github.com/siderolabs/go-efiboot/efidp"
)

const prefix = "../../devices/LNXSYSTM:00/"

// segments look like LNXSYBUS:00 or PNP0A08:00: an ACPI name plus an
// instance suffix. Only the terminating host bridge segment carries an
// EISA-packable HID; intermediate segments are walked over.
var segmentRe = regexp.MustCompile(`^([A-Z][A-Z0-9]{3,7}):([0-9A-Fa-f]{2})/`)

// rootHIDs are the host bridge HIDs terminating the ACPI chain.
var rootHIDs = map[string]bool{
	"PNP0A03": true, // PCI host bridge
	"PNP0A08": true, // PCIe host bridge
}

// Probe matches the ACPI namespace prefix of a topology link.
type Probe struct{}

// Name returns the name of the bus.
func (p Probe) Name() string {
	return "acpi_root"
}

// Flags returns the probe capability flags.
func (p Probe) Flags() probe.Flags {
	return probe.ProvidesRoot
}

// Match consumes the LNXSYSTM chain through the host bridge segment.
func (p Probe) Match(dev *probe.Device, current string) (int, error) {
	if len(current) < len(prefix) || current[:len(prefix)] != prefix {
		return 0, nil
	}

	consumed := len(prefix)

	for {
		m := segmentRe.FindStringSubmatch(current[consumed:])
		if m == nil {
			// ran out of ACPI segments without a host bridge
			return 0, nil
		}

		consumed += len(m[0])

		hidStr := m[1]

		if rootHIDs[hidStr] {
			uid, err := strconv.ParseUint(m[2], 16, 32)
			if err != nil {
				return 0, err
			}

			dev.ACPIRoot = probe.ACPIRootInfo{
				HIDStr: hidStr,
				UIDStr: m[2],
				HID:    PackEISAID(hidStr[:3], hidStr[3:]),
				UID:    uint32(uid),
			}

			return consumed, nil
		}
	}
}

// MakeNode encodes the ACPI host bridge node.
func (p Probe) MakeNode(dev *probe.Device, buf []byte) (int, error) {
	return efidp.MakeACPIHID(buf, dev.ACPIRoot.HID, dev.ACPIRoot.UID)
}

// PackEISAID compresses a three-letter vendor and four-hex-digit product
// into the 32-bit EISA form used by ACPI device path nodes.
//
// PackEISAID("PNP", "0A03") == 0x0a0341d0.
func PackEISAID(vendor, product string) uint32 {
	if len(vendor) != 3 || len(product) != 4 {
		return 0
	}

	compact := (uint32(vendor[0]-'@')&0x1f)<<10 |
		(uint32(vendor[1]-'@')&0x1f)<<5 |
		uint32(vendor[2]-'@')&0x1f

	num, err := strconv.ParseUint(product, 16, 16)
	if err != nil {
		return 0
	}

	return uint32(num)<<16 | compact
}
