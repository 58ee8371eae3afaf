// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package socroot probes platform (SoC) root devices.
package socroot

import (
	"strings"

	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
)

const prefix = "../../devices/platform/"

// Probe matches devices hanging off the platform bus. No device path
// node is produced for the platform root itself.
type Probe struct{}

// Name returns the name of the bus.
func (p Probe) Name() string {
	return "soc_root"
}

// Flags returns the probe capability flags.
func (p Probe) Flags() probe.Flags {
	return probe.ProvidesRoot
}

// Match consumes the platform bus prefix.
func (p Probe) Match(dev *probe.Device, current string) (int, error) {
	if !strings.HasPrefix(current, prefix) {
		return 0, nil
	}

	return len(prefix), nil
}
