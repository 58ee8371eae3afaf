// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package pciroot probes the bare PCI domain prefix of a topology link.
package pciroot

import (
	"regexp"
	"strconv"

	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
	"github.com/siderolabs/go-efiboot/efidp"
)

// pciHostBridgeHID is the EISA-packed PNP0A03 identifier.
const pciHostBridgeHID = 0x0a0341d0

var rootRe = regexp.MustCompile(`^\.\./\.\./devices/pci([0-9a-f]{4}):([0-9a-f]{2})/`)

// Probe matches links which start at a PCI domain without an ACPI chain.
type Probe struct{}

// Name returns the name of the bus.
func (p Probe) Name() string {
	return "pci_root"
}

// Flags returns the probe capability flags.
func (p Probe) Flags() probe.Flags {
	return probe.ProvidesRoot
}

// Match consumes the pciDDDD:BB/ root segment.
func (p Probe) Match(dev *probe.Device, current string) (int, error) {
	m := rootRe.FindStringSubmatch(current)
	if m == nil {
		return 0, nil
	}

	domain, err := strconv.ParseUint(m[1], 16, 16)
	if err != nil {
		return 0, err
	}

	bus, err := strconv.ParseUint(m[2], 16, 8)
	if err != nil {
		return 0, err
	}

	dev.PCIRoot = probe.PCIRootInfo{
		Domain: uint16(domain),
		Bus:    uint8(bus),
	}

	return len(m[0]), nil
}

// MakeNode encodes a synthetic PNP0A03 node for the PCI domain.
func (p Probe) MakeNode(dev *probe.Device, buf []byte) (int, error) {
	return efidp.MakeACPIHID(buf, pciHostBridgeHID, uint32(dev.PCIRoot.Domain))
}
