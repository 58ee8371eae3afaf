// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package virtualroot probes virtual block devices (md, dm, loop).
package virtualroot

import (
	"strings"

	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
)

const prefix = "../../devices/virtual/"

// Probe matches devices hanging off the virtual bus. Such devices have
// no hardware topology, so only abbreviated paths can be built for them.
type Probe struct{}

// Name returns the name of the bus.
func (p Probe) Name() string {
	return "virtual_root"
}

// Flags returns the probe capability flags.
func (p Probe) Flags() probe.Flags {
	return probe.ProvidesRoot | probe.AbbrevOnly
}

// Match consumes the virtual bus prefix.
func (p Probe) Match(dev *probe.Device, current string) (int, error) {
	if !strings.HasPrefix(current, prefix) {
		return 0, nil
	}

	return len(prefix), nil
}
