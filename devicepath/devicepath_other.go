// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build !linux

package devicepath

import (
	"fmt"
	"net/netip"
	"runtime"
)

// FromDevice builds the device path for a file on a block device.
//
// Topology discovery is implemented only on Linux.
func FromDevice(devPath string, partition int, relPath string, abbrev Abbrev, opts ...Option) ([]byte, error) {
	return nil, fmt.Errorf("%w: device path discovery is not implemented on %s", ErrUnsupported, runtime.GOOS)
}

// FromFile builds the device path for a file on a mounted filesystem.
//
// Topology discovery is implemented only on Linux.
func FromFile(filePath string, abbrev Abbrev, opts ...Option) ([]byte, error) {
	return nil, fmt.Errorf("%w: device path discovery is not implemented on %s", ErrUnsupported, runtime.GOOS)
}

// IPv4Path builds the device path for PXE-style network boot.
//
// Interface queries are implemented only on Linux.
func IPv4Path(ifname string, local, remote, gateway, netmask netip.Addr,
	localPort, remotePort, protocol uint16, originStatic bool, opts ...Option,
) ([]byte, error) {
	return nil, fmt.Errorf("%w: network device paths are not implemented on %s", ErrUnsupported, runtime.GOOS)
}
