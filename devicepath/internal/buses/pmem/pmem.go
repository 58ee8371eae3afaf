// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package pmem probes NVDIMM pmem region devices.
package pmem

import (
	"regexp"

	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
)

// pmem block devices hang off the ACPI0012 NFIT bus:
//
//	../../devices/LNXSYSTM:00/LNXSYBUS:00/ACPI0012:00/ndbus0/region11/btt11.0/block/pmem11s/pmem11s1
var linkRe = regexp.MustCompile(`^\.\./\.\./devices/LNXSYSTM:00/LNXSYBUS:00/ACPI0012:00/ndbus\d+/region\d+/(?:btt|pfn|namespace)\d+\.\d+/`)

// Probe matches NVDIMM pmem devices.
type Probe struct{}

// Name returns the name of the bus.
func (p Probe) Name() string {
	return "pmem"
}

// Flags returns the probe capability flags.
//
// There is no device path node type for NVDIMM namespaces which this
// library produces, so pmem devices are located by partition signature
// only.
func (p Probe) Flags() probe.Flags {
	return probe.ProvidesRoot | probe.ProvidesHD | probe.AbbrevOnly
}

// Match consumes the whole NFIT chain up to the block container.
func (p Probe) Match(dev *probe.Device, current string) (int, error) {
	m := linkRe.FindString(current)
	if m == "" {
		return 0, nil
	}

	dev.Interface = probe.NVDIMM

	return len(m), nil
}
