// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package chain_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/siderolabs/go-pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	"github.com/siderolabs/go-efiboot/devicepath/internal/chain"
	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
	"github.com/siderolabs/go-efiboot/devicepath/internal/sysfs"
)

//nolint:maintidx
func TestProbeMatch(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		name    string
		prober  probe.Prober
		current string

		// sysfs attribute path -> contents, materialized under a
		// temporary sysfs root
		sysfs map[string]string

		expectedClaimed   string
		expectedInterface probe.InterfaceType

		expectedACPIRoot *probe.ACPIRootInfo
		expectedPCIRoot  *probe.PCIRootInfo
		expectedPCI      []probe.PCIInfo
		expectedSCSI     *probe.SCSIInfo
		expectedSATA     *probe.SATAInfo
		expectedSAS      *probe.SASInfo
		expectedNVMe     *probe.NVMeInfo
		expectedEMMC     *probe.EMMCInfo
	}{
		{
			name:              "pmem namespace",
			prober:            pmem.Probe{},
			current:           "../../devices/LNXSYSTM:00/LNXSYBUS:00/ACPI0012:00/ndbus0/region2/namespace2.0/block/pmem2",
			expectedClaimed:   "../../devices/LNXSYSTM:00/LNXSYBUS:00/ACPI0012:00/ndbus0/region2/namespace2.0/",
			expectedInterface: probe.NVDIMM,
		},
		{
			name:            "acpi root bridge",
			prober:          acpiroot.Probe{},
			current:         "../../devices/LNXSYSTM:00/LNXSYBUS:00/PNP0A08:00/0000:00:1d.0/block/sda",
			expectedClaimed: "../../devices/LNXSYSTM:00/LNXSYBUS:00/PNP0A08:00/",
			expectedACPIRoot: pointer.To(probe.ACPIRootInfo{
				HIDStr: "PNP0A08",
				UIDStr: "00",
				HID:    0x0a0841d0,
				UID:    0,
			}),
		},
		{
			name:    "acpi chain without bridge",
			prober:  acpiroot.Probe{},
			current: "../../devices/LNXSYSTM:00/LNXSYBUS:00/ACPI0004:00/ndbus0/",
		},
		{
			name:            "pci root",
			prober:          pciroot.Probe{},
			current:         "../../devices/pci0000:00/0000:00:1f.2/ata1/",
			expectedClaimed: "../../devices/pci0000:00/",
			expectedPCIRoot: pointer.To(probe.PCIRootInfo{
				Domain: 0,
				Bus:    0,
			}),
		},
		{
			name:            "soc root",
			prober:          socroot.Probe{},
			current:         "../../devices/platform/soc/ffe07000.mmc/mmc_host/mmc0/",
			expectedClaimed: "../../devices/platform/",
		},
		{
			name:            "virtual root",
			prober:          virtualroot.Probe{},
			current:         "../../devices/virtual/block/md0",
			expectedClaimed: "../../devices/virtual/",
		},
		{
			name:            "pci single hop",
			prober:          pci.Probe{},
			current:         "0000:00:1f.2/ata1/host0/",
			expectedClaimed: "0000:00:1f.2/",
			expectedPCI: []probe.PCIInfo{
				{Domain: 0, Bus: 0, Device: 0x1f, Function: 2},
			},
		},
		{
			name:            "pci behind bridge",
			prober:          pci.Probe{},
			current:         "0000:00:1d.0/0000:05:00.0/nvme/nvme0/",
			expectedClaimed: "0000:00:1d.0/0000:05:00.0/",
			expectedPCI: []probe.PCIInfo{
				{Domain: 0, Bus: 0, Device: 0x1d, Function: 0},
				{Domain: 0, Bus: 5, Device: 0, Function: 0},
			},
		},
		{
			name:              "virtio disk",
			prober:            virtblk.Probe{},
			current:           "virtio3/block/vda/vda1",
			expectedClaimed:   "virtio3/",
			expectedInterface: probe.VirtBlk,
		},
		{
			name:    "sas direct attached",
			prober:  sas.Probe{},
			current: "host4/port-4:0/end_device-4:0/target4:0:0/4:0:0:0/block/sdb/sdb1",
			sysfs: map[string]string{
				"class/scsi_device/4:0:0:0/device/sas_address": "0x5000c50012345678",
			},
			expectedClaimed:   "host4/port-4:0/end_device-4:0/target4:0:0/4:0:0:0/",
			expectedInterface: probe.SAS,
			expectedSCSI: pointer.To(probe.SCSIInfo{
				Host:   4,
				Bus:    0,
				Target: 0,
				LUN:    0,
			}),
			expectedSAS: pointer.To(probe.SASInfo{
				Address: 0x5000c50012345678,
			}),
		},
		{
			name:    "sas behind expander",
			prober:  sas.Probe{},
			current: "host6/port-6:0/expander-6:0/port-6:0:3/end_device-6:0:3/target6:0:3/6:0:3:0/block/sdc",
			sysfs: map[string]string{
				"class/scsi_device/6:0:3:0/device/sas_address": "0x5000cca02b123456",
			},
			expectedClaimed:   "host6/port-6:0/expander-6:0/port-6:0:3/end_device-6:0:3/target6:0:3/6:0:3:0/",
			expectedInterface: probe.SAS,
			expectedSCSI: pointer.To(probe.SCSIInfo{
				Host:   6,
				Bus:    0,
				Target: 3,
				LUN:    0,
			}),
			expectedSAS: pointer.To(probe.SASInfo{
				Address: 0x5000cca02b123456,
			}),
		},
		{
			name:              "sata drive",
			prober:            sata.Probe{},
			current:           "ata2/host1/target1:0:0/1:0:0:0/block/sda/sda1",
			expectedClaimed:   "ata2/host1/target1:0:0/1:0:0:0/",
			expectedInterface: probe.SATA,
			expectedSATA: pointer.To(probe.SATAInfo{
				HBAPort:        1,
				PortMultiplier: 0xffff,
				LUN:            0,
			}),
		},
		{
			name:              "nvme whole namespace",
			prober:            nvme.Probe{},
			current:           "nvme/nvme0/nvme0n1",
			expectedClaimed:   "nvme/nvme0/nvme0n1",
			expectedInterface: probe.NVMe,
			expectedNVMe: pointer.To(probe.NVMeInfo{
				Ctrl:      0,
				Namespace: 1,
			}),
		},
		{
			name:    "nvme partition with eui",
			prober:  nvme.Probe{},
			current: "nvme/nvme1/nvme1n2/nvme1n2p3",
			sysfs: map[string]string{
				"class/block/nvme1n2/eui": "00 25 38 91 01 23 45 67",
			},
			expectedClaimed:   "nvme/nvme1/nvme1n2/nvme1n2p3",
			expectedInterface: probe.NVMe,
			expectedNVMe: pointer.To(probe.NVMeInfo{
				Ctrl:      1,
				Namespace: 2,
				EUI:       []byte{0x00, 0x25, 0x38, 0x91, 0x01, 0x23, 0x45, 0x67},
			}),
		},
		{
			name:              "legacy ide drive",
			prober:            ata.Probe{},
			current:           "ide1/1.0/block/hdc",
			expectedClaimed:   "ide1/1.0/",
			expectedInterface: probe.ATAPI,
			expectedSCSI: pointer.To(probe.SCSIInfo{
				Bus:    1,
				Target: 0,
			}),
		},
		{
			name:              "plain scsi disk",
			prober:            scsi.Probe{},
			current:           "host2/target2:0:1/2:0:1:0/block/sdb/sdb2",
			expectedClaimed:   "host2/target2:0:1/2:0:1:0/",
			expectedInterface: probe.SCSI,
			expectedSCSI: pointer.To(probe.SCSIInfo{
				Host:   2,
				Bus:    0,
				Target: 1,
				LUN:    0,
			}),
		},
		{
			name:              "emmc card",
			prober:            emmc.Probe{},
			current:           "mmc_host/mmc0/mmc0:0001/block/mmcblk0/mmcblk0p1",
			expectedClaimed:   "mmc_host/mmc0/mmc0:0001/",
			expectedInterface: probe.EMMC,
			expectedEMMC: pointer.To(probe.EMMCInfo{
				Slot: 0,
			}),
		},
	} {
		test := test

		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()

			for path, contents := range test.sysfs {
				full := filepath.Join(root, path)

				require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
				require.NoError(t, os.WriteFile(full, []byte(contents+"\n"), 0o644))
			}

			dev := &probe.Device{
				SysFS: sysfs.New(root),
			}

			consumed, err := test.prober.Match(dev, test.current)
			require.NoError(t, err)

			assert.Equal(t, test.expectedClaimed, test.current[:consumed])
			assert.Equal(t, test.expectedInterface, dev.Interface)

			if test.expectedACPIRoot != nil {
				assert.Equal(t, *test.expectedACPIRoot, dev.ACPIRoot)
			}

			if test.expectedPCIRoot != nil {
				assert.Equal(t, *test.expectedPCIRoot, dev.PCIRoot)
			}

			if test.expectedPCI != nil {
				assert.Equal(t, test.expectedPCI, dev.PCI)
			}

			if test.expectedSCSI != nil {
				assert.Equal(t, *test.expectedSCSI, dev.SCSI)
			}

			if test.expectedSATA != nil {
				assert.Equal(t, *test.expectedSATA, dev.SATA)
			}

			if test.expectedSAS != nil {
				assert.Equal(t, *test.expectedSAS, dev.SAS)
			}

			if test.expectedNVMe != nil {
				assert.Equal(t, *test.expectedNVMe, dev.NVMe)
			}

			if test.expectedEMMC != nil {
				assert.Equal(t, *test.expectedEMMC, dev.EMMC)
			}
		})
	}
}

func TestDefaultOrder(t *testing.T) {
	t.Parallel()

	names := chain.Default().Names()

	// sas and sata must come before the generic scsi probe, as their
	// segment grammars share the hostN prefix
	assert.Equal(t, []string{
		"pmem",
		"acpi_root",
		"pci_root",
		"soc_root",
		"virtual_root",
		"pci",
		"virtblk",
		"sas",
		"sata",
		"nvme",
		"ata",
		"scsi",
		"emmc",
	}, names)
}
