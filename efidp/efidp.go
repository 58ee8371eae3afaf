// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package efidp encodes EFI device path protocol nodes.
//
// Every encoder is two-pass: a nil buffer returns the number of bytes the
// node requires without writing anything, a non-nil buffer is filled and
// must be large enough.
package efidp

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/encoding/unicode"
)

// Common errors.
var (
	ErrBufferTooSmall = errors.New("buffer too small for device path node")
	ErrNodeTooLong    = errors.New("device path node exceeds maximum length")
)

// Device path node types.
const (
	TypeHardware  = 0x01
	TypeACPI      = 0x02
	TypeMessaging = 0x03
	TypeMedia     = 0x04
	TypeEnd       = 0x7f
)

// Node sub-types used by this package.
const (
	SubTypeHWPCI    = 0x01
	SubTypeHWVendor = 0x04

	SubTypeACPIHID = 0x01

	SubTypeMsgATAPI  = 0x01
	SubTypeMsgSCSI   = 0x02
	SubTypeMsgVendor = 0x0a
	SubTypeMsgMAC    = 0x0b
	SubTypeMsgIPv4   = 0x0c
	SubTypeMsgSATA   = 0x12
	SubTypeMsgNVMe   = 0x17
	SubTypeMsgEMMC   = 0x1d

	SubTypeMediaHD   = 0x01
	SubTypeMediaFile = 0x04

	SubTypeEndEntire = 0xff
)

// HD node signature types.
const (
	SignatureNone = 0
	SignatureMBR  = 1
	SignatureGUID = 2
)

// HD node partition formats.
const (
	FormatMBR = 1
	FormatGPT = 2
)

// EDD10GUID identifies the legacy EDD 1.0 vendor hardware node
// (CF31FAC5-C24E-11D2-85F3-00A0C93EC93B, on-wire layout).
var EDD10GUID = [16]byte{
	0xc5, 0xfa, 0x31, 0xcf,
	0x4e, 0xc2,
	0xd2, 0x11,
	0x85, 0xf3, 0x00, 0xa0, 0xc9, 0x3e, 0xc9, 0x3b,
}

// SASVendorGUID identifies the SAS vendor messaging node
// (D487DDB4-008B-11D9-AFDC-001083FFCA4D, on-wire layout).
var SASVendorGUID = [16]byte{
	0xb4, 0xdd, 0x87, 0xd4,
	0x8b, 0x00,
	0xd9, 0x11,
	0xaf, 0xdc, 0x00, 0x10, 0x83, 0xff, 0xca, 0x4d,
}

// putLE16/putLE32/putLE64 assume the bounds were checked by header().
func putLE16(buf []byte, v uint16) { buf[0] = byte(v); buf[1] = byte(v >> 8) }

func putLE32(buf []byte, v uint32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
}

func putLE64(buf []byte, v uint64) {
	putLE32(buf[0:4], uint32(v))
	putLE32(buf[4:8], uint32(v>>32))
}

// header writes the node header and returns the payload slice, or nil in
// size-query mode.
func header(buf []byte, typ, subType byte, length int) ([]byte, error) {
	if length > math.MaxUint16 {
		return nil, ErrNodeTooLong
	}

	if buf == nil {
		return nil, nil
	}

	if len(buf) < length {
		return nil, ErrBufferTooSmall
	}

	buf[0] = typ
	buf[1] = subType
	putLE16(buf[2:4], uint16(length))

	return buf[4:length], nil
}

// MakePCI encodes a PCI hardware node.
func MakePCI(buf []byte, device, function byte) (int, error) {
	const length = 6

	payload, err := header(buf, TypeHardware, SubTypeHWPCI, length)
	if err != nil {
		return -1, err
	}

	if payload != nil {
		payload[0] = function
		payload[1] = device
	}

	return length, nil
}

// MakeACPIHID encodes an ACPI node with a compressed EISA HID and UID.
func MakeACPIHID(buf []byte, hid, uid uint32) (int, error) {
	const length = 12

	payload, err := header(buf, TypeACPI, SubTypeACPIHID, length)
	if err != nil {
		return -1, err
	}

	if payload != nil {
		putLE32(payload[0:4], hid)
		putLE32(payload[4:8], uid)
	}

	return length, nil
}

// MakeATAPI encodes a legacy ATAPI messaging node.
func MakeATAPI(buf []byte, primary, slave byte, lun uint16) (int, error) {
	const length = 8

	payload, err := header(buf, TypeMessaging, SubTypeMsgATAPI, length)
	if err != nil {
		return -1, err
	}

	if payload != nil {
		payload[0] = primary
		payload[1] = slave
		putLE16(payload[2:4], lun)
	}

	return length, nil
}

// MakeSCSI encodes a SCSI messaging node.
func MakeSCSI(buf []byte, target, lun uint16) (int, error) {
	const length = 8

	payload, err := header(buf, TypeMessaging, SubTypeMsgSCSI, length)
	if err != nil {
		return -1, err
	}

	if payload != nil {
		putLE16(payload[0:2], target)
		putLE16(payload[2:4], lun)
	}

	return length, nil
}

// MakeSATA encodes a SATA messaging node.
//
// portMultiplier is 0xffff for a direct-attached device.
func MakeSATA(buf []byte, hbaPort, portMultiplier, lun uint16) (int, error) {
	const length = 10

	payload, err := header(buf, TypeMessaging, SubTypeMsgSATA, length)
	if err != nil {
		return -1, err
	}

	if payload != nil {
		putLE16(payload[0:2], hbaPort)
		putLE16(payload[2:4], portMultiplier)
		putLE16(payload[4:6], lun)
	}

	return length, nil
}

// MakeNVMe encodes an NVMe namespace messaging node.
//
// eui is the 8-byte IEEE EUI-64 of the namespace, or nil when the
// controller does not assign one.
func MakeNVMe(buf []byte, nsid uint32, eui []byte) (int, error) {
	const length = 16

	if eui != nil && len(eui) != 8 {
		return -1, fmt.Errorf("EUI-64 must be 8 bytes, got %d", len(eui))
	}

	payload, err := header(buf, TypeMessaging, SubTypeMsgNVMe, length)
	if err != nil {
		return -1, err
	}

	if payload != nil {
		putLE32(payload[0:4], nsid)
		copy(payload[4:12], make([]byte, 8))
		copy(payload[4:12], eui)
	}

	return length, nil
}

// MakeSAS encodes a SAS vendor messaging node.
func MakeSAS(buf []byte, address, lun uint64) (int, error) {
	const length = 44

	payload, err := header(buf, TypeMessaging, SubTypeMsgVendor, length)
	if err != nil {
		return -1, err
	}

	if payload != nil {
		copy(payload[0:16], SASVendorGUID[:])
		putLE32(payload[16:20], 0) // reserved
		putLE64(payload[20:28], address)
		putLE64(payload[28:36], lun)
		putLE16(payload[36:38], 0) // device topology info
		putLE16(payload[38:40], 0) // relative target port
	}

	return length, nil
}

// MakeEMMC encodes an eMMC messaging node.
func MakeEMMC(buf []byte, slot byte) (int, error) {
	const length = 5

	payload, err := header(buf, TypeMessaging, SubTypeMsgEMMC, length)
	if err != nil {
		return -1, err
	}

	if payload != nil {
		payload[0] = slot
	}

	return length, nil
}

// MakeMAC encodes a MAC address messaging node.
//
// ifType is the ARP hardware type, 1 for ethernet.
func MakeMAC(buf []byte, hwaddr []byte, ifType byte) (int, error) {
	const length = 37

	if len(hwaddr) > 32 {
		return -1, fmt.Errorf("hardware address too long: %d bytes", len(hwaddr))
	}

	payload, err := header(buf, TypeMessaging, SubTypeMsgMAC, length)
	if err != nil {
		return -1, err
	}

	if payload != nil {
		copy(payload[0:32], make([]byte, 32))
		copy(payload[0:32], hwaddr)
		payload[32] = ifType
	}

	return length, nil
}

// MakeIPv4 encodes an IPv4 messaging node.
func MakeIPv4(buf []byte, local, remote, gateway, netmask [4]byte, localPort, remotePort, protocol uint16, staticAddr bool) (int, error) {
	const length = 27

	payload, err := header(buf, TypeMessaging, SubTypeMsgIPv4, length)
	if err != nil {
		return -1, err
	}

	if payload != nil {
		copy(payload[0:4], local[:])
		copy(payload[4:8], remote[:])
		putLE16(payload[8:10], localPort)
		putLE16(payload[10:12], remotePort)
		putLE16(payload[12:14], protocol)

		if staticAddr {
			payload[14] = 1
		} else {
			payload[14] = 0
		}

		copy(payload[15:19], gateway[:])
		copy(payload[19:23], netmask[:])
	}

	return length, nil
}

// MakeEDD10 encodes the legacy EDD 1.0 vendor hardware node carrying a BIOS
// device number.
func MakeEDD10(buf []byte, deviceNum uint32) (int, error) {
	const length = 24

	payload, err := header(buf, TypeHardware, SubTypeHWVendor, length)
	if err != nil {
		return -1, err
	}

	if payload != nil {
		copy(payload[0:16], EDD10GUID[:])
		putLE32(payload[16:20], deviceNum)
	}

	return length, nil
}

// MakeHD encodes a hard drive media node identifying a partition by its
// on-disk signature.
//
// start and size are in logical blocks; signature is the raw on-disk
// signature (a mixed-endian GUID for GPT, four bytes for MBR).
func MakeHD(buf []byte, partNum uint32, start, size uint64, signature [16]byte, format, signatureType byte) (int, error) {
	const length = 42

	payload, err := header(buf, TypeMedia, SubTypeMediaHD, length)
	if err != nil {
		return -1, err
	}

	if payload != nil {
		putLE32(payload[0:4], partNum)
		putLE64(payload[4:12], start)
		putLE64(payload[12:20], size)
		copy(payload[20:36], signature[:])
		payload[36] = format
		payload[37] = signatureType
	}

	return length, nil
}

// MakeFile encodes a file path media node.
//
// The path must already use backslash separators; it is stored as
// NUL-terminated UTF-16LE.
func MakeFile(buf []byte, path string) (int, error) {
	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(path))
	if err != nil {
		return -1, fmt.Errorf("encoding file path: %w", err)
	}

	length := 4 + len(encoded) + 2

	payload, err := header(buf, TypeMedia, SubTypeMediaFile, length)
	if err != nil {
		return -1, err
	}

	if payload != nil {
		copy(payload, encoded)
		payload[len(encoded)] = 0
		payload[len(encoded)+1] = 0
	}

	return length, nil
}

// MakeEndEntire encodes the terminating node.
func MakeEndEntire(buf []byte) (int, error) {
	const length = 4

	_, err := header(buf, TypeEnd, SubTypeEndEntire, length)
	if err != nil {
		return -1, err
	}

	return length, nil
}
