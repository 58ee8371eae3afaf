// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package sas probes SAS host/port/end-device segments of a topology link.
package sas

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
	"github.com/siderolabs/go-efiboot/efidp"
)

var (
	hostRe     = regexp.MustCompile(`^host(\d+)/port-(\d+):(\d+)/`)
	expanderRe = regexp.MustCompile(`^expander-(\d+):(\d+)/port-(\d+):(\d+):(\d+)/`)
	endDevRe   = regexp.MustCompile(`^end_device-(\d+):(\d+)(:(\d+))?/`)
	targetRe   = regexp.MustCompile(`^target(\d+):(\d+):(\d+)/(\d+):(\d+):(\d+):(\d+)/`)
)

// Probe matches a SAS transport chain, direct attached or behind
// expanders.
type Probe struct{}

// Name returns the name of the bus.
func (p Probe) Name() string {
	return "sas"
}

// Flags returns the probe capability flags.
func (p Probe) Flags() probe.Flags {
	return 0
}

// Match consumes the SAS chain through the SCSI device segment, reading
// the end device SAS address from sysfs.
func (p Probe) Match(dev *probe.Device, current string) (int, error) {
	m := hostRe.FindStringSubmatch(current)
	if m == nil {
		return 0, nil
	}

	consumed := len(m[0])

	for {
		m = expanderRe.FindStringSubmatch(current[consumed:])
		if m == nil {
			break
		}

		consumed += len(m[0])
	}

	m = endDevRe.FindStringSubmatch(current[consumed:])
	if m == nil {
		return 0, nil
	}

	consumed += len(m[0])

	m = targetRe.FindStringSubmatch(current[consumed:])
	if m == nil {
		return 0, nil
	}

	consumed += len(m[0])

	host, err := strconv.ParseUint(m[4], 10, 32)
	if err != nil {
		return 0, err
	}

	bus, err := strconv.ParseUint(m[5], 10, 32)
	if err != nil {
		return 0, err
	}

	target, err := strconv.ParseUint(m[6], 10, 32)
	if err != nil {
		return 0, err
	}

	lun, err := strconv.ParseUint(m[7], 10, 64)
	if err != nil {
		return 0, err
	}

	scsiDev := fmt.Sprintf("%d:%d:%d:%d", host, bus, target, lun)

	addrStr, err := dev.SysFS.ReadFile("class", "scsi_device", scsiDev, "device", "sas_address")
	if err != nil {
		return 0, fmt.Errorf("reading SAS address of %q: %w", scsiDev, err)
	}

	address, err := strconv.ParseUint(strings.TrimPrefix(addrStr, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing SAS address of %q: %w", scsiDev, err)
	}

	dev.Interface = probe.SAS
	dev.SCSI = probe.SCSIInfo{
		Host:   uint32(host),
		Bus:    uint32(bus),
		Target: uint32(target),
		LUN:    lun,
	}
	dev.SAS = probe.SASInfo{
		Address: address,
	}

	return consumed, nil
}

// MakeNode encodes the SAS vendor messaging node.
func (p Probe) MakeNode(dev *probe.Device, buf []byte) (int, error) {
	return efidp.MakeSAS(buf, dev.SAS.Address, dev.SCSI.LUN)
}
