// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package chain assembles the bus probes in matching order.
package chain

import (
	"github.com/siderolabs/gen/xslices"

	"github.com/siderolabs/go-efiboot/devicepath/internal/buses/acpiroot"
	"github.com/siderolabs/go-efiboot/devicepath/internal/buses/ata"
	"github.com/siderolabs/go-efiboot/devicepath/internal/buses/emmc"
	"github.com/siderolabs/go-efiboot/devicepath/internal/buses/nvme"
	"github.com/siderolabs/go-efiboot/devicepath/internal/buses/pci"
	"github.com/siderolabs/go-efiboot/devicepath/internal/buses/pciroot"
	"github.com/siderolabs/go-efiboot/devicepath/internal/buses/pmem"
	"github.com/siderolabs/go-efiboot/devicepath/internal/buses/sas"
	"github.com/siderolabs/go-efiboot/devicepath/internal/buses/sata"
	"github.com/siderolabs/go-efiboot/devicepath/internal/buses/scsi"
	"github.com/siderolabs/go-efiboot/devicepath/internal/buses/socroot"
	"github.com/siderolabs/go-efiboot/devicepath/internal/buses/virtblk"
	"github.com/siderolabs/go-efiboot/devicepath/internal/buses/virtualroot"
	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
)

// Chain is an ordered list of bus probes.
type Chain []probe.Prober

// Default returns the probe chain in matching order: root buses first,
// bridges next, storage transports last. Order matters where segment
// grammars overlap (sas and sata both start with hostN, so they run
// before plain scsi).
func Default() Chain {
	return Chain{
		pmem.Probe{},
		acpiroot.Probe{},
		pciroot.Probe{},
		socroot.Probe{},
		virtualroot.Probe{},
		pci.Probe{},
		virtblk.Probe{},
		sas.Probe{},
		sata.Probe{},
		nvme.Probe{},
		ata.Probe{},
		scsi.Probe{},
		emmc.Probe{},
	}
}

// Names returns the probe names in chain order.
func (c Chain) Names() []string {
	return xslices.Map(c, probe.Prober.Name)
}
