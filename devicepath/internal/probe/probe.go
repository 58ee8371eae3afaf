// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package probe defines the device record and the bus probe interfaces.
package probe

import (
	"github.com/siderolabs/go-efiboot/devicepath/internal/sysfs"
	"github.com/siderolabs/go-efiboot/partitioning"
)

// InterfaceType is the storage interface of a device.
type InterfaceType int

// Storage interfaces, set by the bus probe that claims the device.
const (
	Unknown InterfaceType = iota
	ATA
	ATAPI
	SCSI
	SATA
	SAS
	NVMe
	NVDIMM
	EMMC
	VirtBlk
)

// Flags describe what a probe (and transitively a device) can provide.
type Flags uint32

// Flag bits.
const (
	// ProvidesRoot marks a probe that establishes the bus root; at most
	// one such probe matches per device.
	ProvidesRoot Flags = 1 << iota
	// ProvidesHD marks a probe whose devices are located by partition
	// signature rather than topology.
	ProvidesHD
	// AbbrevOnly marks a device for which only abbreviated (HD()/File())
	// paths can be constructed.
	AbbrevOnly
)

// PCIRootInfo is the PCI root complex address.
type PCIRootInfo struct {
	Domain uint16
	Bus    uint8
}

// PCIInfo is a single PCI device address on the path to the device.
type PCIInfo struct {
	Domain   uint16
	Bus      uint8
	Device   uint8
	Function uint8
}

// ACPIRootInfo is the ACPI root complex identification.
type ACPIRootInfo struct {
	HIDStr string
	UIDStr string

	HID uint32
	UID uint32
}

// SCSIInfo is the SCSI/SAS address tuple.
type SCSIInfo struct {
	Host   uint32
	Bus    uint32
	Target uint32
	LUN    uint64
}

// SATAInfo is the SATA address tuple.
type SATAInfo struct {
	HBAPort        uint16
	PortMultiplier uint16
	LUN            uint16
}

// SASInfo is the SAS end device address.
type SASInfo struct {
	Address uint64
}

// NVMeInfo is the NVMe controller and namespace identification.
type NVMeInfo struct {
	Ctrl      uint32
	Namespace uint32

	// EUI is the 8-byte IEEE EUI-64 of the namespace, if assigned.
	EUI []byte
}

// EMMCInfo is the eMMC slot identification.
type EMMCInfo struct {
	Slot uint8
}

// Device is the record populated by walking the topology link.
//
// A Device is owned by the discovery call that created it and is never
// shared.
type Device struct {
	SysFS sysfs.FS

	Interface InterfaceType
	Flags     Flags

	// Link is the canonical topology link, a slash-separated chain of bus
	// segments ending in the device's own name.
	Link string

	Major uint32
	Minor uint32

	// Part is the 1-based partition index; 0 is the whole disk, -1 is
	// unresolved.
	Part     int
	DiskName string
	PartName string

	// Probes lists the probes that matched, in match order.
	Probes []Prober

	PCIRoot  PCIRootInfo
	ACPIRoot ACPIRootInfo
	PCI      []PCIInfo
	SCSI     SCSIInfo
	SATA     SATAInfo
	SAS      SASInfo
	NVMe     NVMeInfo
	EMMC     EMMCInfo
}

// Prober recognizes one bus segment type in a topology link.
//
// Probes are stateless and process-wide; all mutable state lives in the
// Device being matched.
type Prober interface {
	Name() string
	Flags() Flags

	// Match inspects the head of current (the unconsumed suffix of
	// dev.Link), filling typed fields on dev. It returns the number of
	// bytes claimed; zero means no match.
	Match(dev *Device, current string) (int, error)
}

// NodeMaker is implemented by probes that contribute device path nodes.
//
// MakeNode follows the two-pass contract: nil buf returns the required
// size.
type NodeMaker interface {
	MakeNode(dev *Device, buf []byte) (int, error)
}

// PartNamer is implemented by probes with a partition naming convention
// different from the plain name+index one.
type PartNamer interface {
	MakePartName(dev *Device) string
}

// SetPartName records the partition device name; it is a no-op for
// unresolved or whole-disk devices.
func (dev *Device) SetPartName(name string) {
	if dev.Part <= 0 {
		return
	}

	dev.PartName = name
}

// SetPart updates the partition index, re-deriving the partition name
// whenever the value actually changes.
func (dev *Device) SetPart(value int) {
	if dev.Part == value {
		return
	}

	dev.Part = value
	dev.ResetPartName()
}

// ResetPartName re-derives the partition device name from the disk name
// and partition index, honoring the naming convention of the last
// matched probe.
func (dev *Device) ResetPartName() {
	dev.PartName = ""

	if dev.Part < 1 {
		return
	}

	if len(dev.Probes) > 0 {
		if namer, ok := dev.Probes[len(dev.Probes)-1].(PartNamer); ok {
			dev.PartName = namer.MakePartName(dev)

			return
		}
	}

	dev.PartName = partitioning.DevName(dev.DiskName, uint(dev.Part))
}
