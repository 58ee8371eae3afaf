// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package nvme probes NVMe controller and namespace segments of a
// topology link.
package nvme

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
	"github.com/siderolabs/go-efiboot/efidp"
)

var (
	namespaceRe = regexp.MustCompile(`^nvme/nvme(\d+)/(nvme\d+n(\d+))(/|$)`)
	partitionRe = regexp.MustCompile(`^nvme\d+n\d+p\d+$`)
)

// Probe matches the nvme/nvmeC/nvmeCnN chain of a PCIe NVMe namespace.
type Probe struct{}

// Name returns the name of the bus.
func (p Probe) Name() string {
	return "nvme"
}

// Flags returns the probe capability flags.
func (p Probe) Flags() probe.Flags {
	return 0
}

// Match consumes the controller and namespace segments, plus the
// trailing partition segment when present, and reads the namespace
// EUI-64 from sysfs.
func (p Probe) Match(dev *probe.Device, current string) (int, error) {
	m := namespaceRe.FindStringSubmatch(current)
	if m == nil {
		return 0, nil
	}

	consumed := len(m[0])

	ctrl, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, err
	}

	nsid, err := strconv.ParseUint(m[3], 10, 32)
	if err != nil {
		return 0, err
	}

	if partitionRe.MatchString(current[consumed:]) {
		consumed = len(current)
	}

	dev.Interface = probe.NVMe
	dev.NVMe = probe.NVMeInfo{
		Ctrl:      uint32(ctrl),
		Namespace: uint32(nsid),
		EUI:       readEUI(dev, m[2]),
	}

	return consumed, nil
}

// readEUI fetches the namespace EUI-64. The attribute is optional, a
// missing or malformed one is not an error.
func readEUI(dev *probe.Device, namespace string) []byte {
	raw, err := dev.SysFS.ReadFile("class", "block", namespace, "eui")
	if err != nil {
		raw, err = dev.SysFS.ReadFile("class", "block", namespace, "device", "eui")
		if err != nil {
			return nil
		}
	}

	fields := strings.Fields(raw)
	if len(fields) != 8 {
		return nil
	}

	eui := make([]byte, 8)

	for i, field := range fields {
		b, err := strconv.ParseUint(field, 16, 8)
		if err != nil {
			return nil
		}

		eui[i] = byte(b)
	}

	return eui
}

// MakeNode encodes the NVMe namespace node.
func (p Probe) MakeNode(dev *probe.Device, buf []byte) (int, error) {
	return efidp.MakeNVMe(buf, dev.NVMe.Namespace, dev.NVMe.EUI)
}

// MakePartName returns the nvmeCnNpP partition device name.
func (p Probe) MakePartName(dev *probe.Device) string {
	return fmt.Sprintf("%sp%d", dev.DiskName, dev.Part)
}
