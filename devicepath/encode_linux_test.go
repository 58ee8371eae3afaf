// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package devicepath

import (
	"encoding/binary"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/siderolabs/go-efiboot/devicepath/internal/chain"
	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
)

// nodeID identifies one device path node by its header.
type nodeID struct {
	Type    byte
	SubType byte
}

func parseNodeIDs(t *testing.T, dp []byte) []nodeID {
	t.Helper()

	var nodes []nodeID

	for off := 0; off < len(dp); {
		require.LessOrEqual(t, off+4, len(dp), "truncated node header")

		length := int(binary.LittleEndian.Uint16(dp[off+2:]))
		require.GreaterOrEqual(t, length, 4)
		require.LessOrEqual(t, off+length, len(dp))

		nodes = append(nodes, nodeID{Type: dp[off], SubType: dp[off+1]})

		off += length
	}

	return nodes
}

// sataDevice builds a discovered SATA partition device from its
// topology link.
func sataDevice(t *testing.T, part int) *probe.Device {
	t.Helper()

	dev := &probe.Device{
		Link: "../../devices/pci0000:00/0000:00:1f.2/ata1/host0/target0:0:0/0:0:0:0/block/sda/sda1",
		Part: part,
	}

	require.NoError(t, setDiskAndPartName(dev))
	require.NoError(t, matchProbes(dev, chain.Default(), zaptest.NewLogger(t)))

	return dev
}

func TestEncodeDevicePath(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		name    string
		part    int
		relPath string
		abbrev  Abbrev

		expectedNodes []nodeID
		expectsDisk   bool
	}{
		{
			name:    "full topology",
			part:    1,
			relPath: "EFI/BOOT/BOOTX64.EFI",
			expectedNodes: []nodeID{
				{0x02, 0x01}, // ACPI root
				{0x01, 0x01}, // PCI
				{0x03, 0x12}, // SATA
				{0x04, 0x01}, // HD
				{0x04, 0x04}, // File
				{0x7f, 0xff}, // EndEntire
			},
			expectsDisk: true,
		},
		{
			name:    "hd abbreviation",
			part:    1,
			relPath: "EFI/BOOT/BOOTX64.EFI",
			abbrev:  AbbrevHD,
			expectedNodes: []nodeID{
				{0x04, 0x01},
				{0x04, 0x04},
				{0x7f, 0xff},
			},
			expectsDisk: true,
		},
		{
			name:    "file abbreviation",
			part:    1,
			relPath: "EFI/BOOT/BOOTX64.EFI",
			abbrev:  AbbrevFile,
			expectedNodes: []nodeID{
				{0x04, 0x04},
				{0x7f, 0xff},
			},
		},
		{
			name:    "edd10 abbreviation",
			part:    1,
			relPath: "EFI/BOOT/BOOTX64.EFI",
			abbrev:  AbbrevEDD10,
			expectedNodes: []nodeID{
				{0x01, 0x04}, // EDD 1.0 vendor
				{0x04, 0x01},
				{0x04, 0x04},
				{0x7f, 0xff},
			},
			expectsDisk: true,
		},
		{
			name:    "whole disk forces full topology",
			part:    0,
			relPath: "EFI/BOOT/BOOTX64.EFI",
			abbrev:  AbbrevHD,
			expectedNodes: []nodeID{
				{0x02, 0x01},
				{0x01, 0x01},
				{0x03, 0x12},
				{0x04, 0x04},
				{0x7f, 0xff},
			},
		},
		{
			name: "partition without file",
			part: 1,
			expectedNodes: []nodeID{
				{0x02, 0x01},
				{0x01, 0x01},
				{0x03, 0x12},
				{0x04, 0x01},
				{0x7f, 0xff},
			},
			expectsDisk: true,
		},
	} {
		test := test

		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			dev := sataDevice(t, test.part)

			opened := false

			openDisk := func(readWrite bool) (Disk, func() error, error) {
				opened = true

				assert.False(t, readWrite)

				return loadGPTImage(t), func() error { return nil }, nil
			}

			dp, err := encodeDevicePath(dev, test.relPath, test.abbrev, applyOptions(), openDisk)
			require.NoError(t, err)

			assert.Equal(t, test.expectedNodes, parseNodeIDs(t, dp))
			assert.Equal(t, test.expectsDisk, opened)

			// unchanged topology encodes to identical bytes
			dp2, err := encodeDevicePath(dev, test.relPath, test.abbrev, applyOptions(), openDisk)
			require.NoError(t, err)
			assert.Equal(t, dp, dp2)
		})
	}
}

func TestEncodeDevicePathHDSignature(t *testing.T) {
	t.Parallel()

	dev := sataDevice(t, 1)

	openDisk := func(bool) (Disk, func() error, error) {
		return loadGPTImage(t), func() error { return nil }, nil
	}

	dp, err := encodeDevicePath(dev, "", AbbrevHD, applyOptions(), openDisk)
	require.NoError(t, err)

	// HD node is first: header(4) + partnum(4) + start(8) + size(8)
	require.GreaterOrEqual(t, len(dp), 46)
	assert.Equal(t, gptUniqueGUID, dp[24:40])
}

func TestEncodeDevicePathAbbrevOnly(t *testing.T) {
	t.Parallel()

	dev := sataDevice(t, 1)
	dev.Flags |= probe.AbbrevOnly

	openDisk := func(bool) (Disk, func() error, error) {
		t.Fatal("disk must not be opened")

		return nil, nil, nil
	}

	_, err := encodeDevicePath(dev, "EFI/BOOT/BOOTX64.EFI", 0, applyOptions(), openDisk)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// HD() and File() abbreviations are still fine
	_, err = encodeDevicePath(dev, "EFI/BOOT/BOOTX64.EFI", AbbrevFile, applyOptions(), openDisk)
	assert.NoError(t, err)
}

func TestTiltSlashes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `\EFI\BOOT\BOOTX64.EFI`, tiltSlashes("/EFI/BOOT/BOOTX64.EFI"))
	assert.Equal(t, `EFI\BOOT\BOOTX64.EFI`, tiltSlashes("EFI/BOOT/BOOTX64.EFI"))

	// the translation loses no bytes
	assert.Equal(t, "/EFI/BOOT/BOOTX64.EFI", strings.ReplaceAll(tiltSlashes("/EFI/BOOT/BOOTX64.EFI"), `\`, "/"))
}

func TestIPv4PathErrors(t *testing.T) {
	t.Parallel()

	local := netip.MustParseAddr("10.0.0.2")
	remote := netip.MustParseAddr("10.0.0.1")
	gateway := netip.MustParseAddr("10.0.0.254")
	netmask := netip.MustParseAddr("255.255.255.0")

	_, err := IPv4Path("eth0", netip.MustParseAddr("fe80::1"), remote, gateway, netmask, 0, 69, 17, true)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = IPv4Path("no-such-interface0", local, remote, gateway, netmask, 0, 69, 17, true)
	assert.Error(t, err)
}

func TestNormalizeAbbrev(t *testing.T) {
	t.Parallel()

	dev := &probe.Device{Part: 1}

	abbrev, err := normalizeAbbrev(dev, "path", AbbrevNone|AbbrevHD|AbbrevFile|AbbrevEDD10)
	require.NoError(t, err)
	assert.Equal(t, AbbrevNone, abbrev)

	_, err = normalizeAbbrev(dev, "", AbbrevFile)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
