// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package pci probes the PCI device/function segments of a topology link.
package pci

import (
	"regexp"
	"strconv"

	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
	"github.com/siderolabs/go-efiboot/efidp"
)

var segmentRe = regexp.MustCompile(`^([0-9a-f]{4}):([0-9a-f]{2}):([0-9a-f]{2})\.([0-9a-f])/`)

// Probe matches one DDDD:BB:DD.F segment per bridge hop, root port first.
type Probe struct{}

// Name returns the name of the bus.
func (p Probe) Name() string {
	return "pci"
}

// Flags returns the probe capability flags.
func (p Probe) Flags() probe.Flags {
	return 0
}

// Match consumes every consecutive PCI address segment, recording the
// device/function pair of each hop.
func (p Probe) Match(dev *probe.Device, current string) (int, error) {
	consumed := 0

	for {
		m := segmentRe.FindStringSubmatch(current[consumed:])
		if m == nil {
			return consumed, nil
		}

		domain, err := strconv.ParseUint(m[1], 16, 16)
		if err != nil {
			return 0, err
		}

		bus, err := strconv.ParseUint(m[2], 16, 8)
		if err != nil {
			return 0, err
		}

		device, err := strconv.ParseUint(m[3], 16, 8)
		if err != nil {
			return 0, err
		}

		function, err := strconv.ParseUint(m[4], 16, 8)
		if err != nil {
			return 0, err
		}

		dev.PCI = append(dev.PCI, probe.PCIInfo{
			Domain:   uint16(domain),
			Bus:      uint8(bus),
			Device:   uint8(device),
			Function: uint8(function),
		})

		consumed += len(m[0])
	}
}

// MakeNode encodes one PCI node per recorded hop, root port first.
func (p Probe) MakeNode(dev *probe.Device, buf []byte) (int, error) {
	off := 0

	for _, hop := range dev.PCI {
		var sub []byte

		if buf != nil {
			sub = buf[off:]
		}

		n, err := efidp.MakePCI(sub, hop.Device, hop.Function)
		if err != nil {
			return -1, err
		}

		off += n
	}

	return off, nil
}
