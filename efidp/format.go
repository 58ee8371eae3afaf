// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package efidp

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"

	"github.com/siderolabs/go-efiboot/internal/gptutil"
)

// Format renders an encoded device path as text, one element per node.
//
// Unknown node types are rendered as Path(type,subtype,length). The output
// is for logs and diagnostics, not a parseable format.
func Format(dp []byte) string {
	var b strings.Builder

	for len(dp) >= 4 {
		if b.Len() > 0 {
			b.WriteByte('/')
		}

		length := int(binary.LittleEndian.Uint16(dp[2:4]))
		if length < 4 || length > len(dp) {
			b.WriteString("<truncated>")

			break
		}

		b.WriteString(formatNode(dp[0], dp[1], dp[4:length]))

		if dp[0] == TypeEnd {
			break
		}

		dp = dp[length:]
	}

	return b.String()
}

//nolint:cyclop
func formatNode(typ, subType byte, payload []byte) string {
	switch {
	case typ == TypeHardware && subType == SubTypeHWPCI && len(payload) >= 2:
		return fmt.Sprintf("Pci(0x%x,0x%x)", payload[1], payload[0])
	case typ == TypeACPI && subType == SubTypeACPIHID && len(payload) >= 8:
		return fmt.Sprintf("Acpi(0x%08x,0x%x)",
			binary.LittleEndian.Uint32(payload[0:4]),
			binary.LittleEndian.Uint32(payload[4:8]))
	case typ == TypeMessaging && subType == SubTypeMsgSATA && len(payload) >= 6:
		return fmt.Sprintf("Sata(0x%x,0x%x,0x%x)",
			binary.LittleEndian.Uint16(payload[0:2]),
			binary.LittleEndian.Uint16(payload[2:4]),
			binary.LittleEndian.Uint16(payload[4:6]))
	case typ == TypeMessaging && subType == SubTypeMsgNVMe && len(payload) >= 12:
		return fmt.Sprintf("NVMe(0x%x,%x)",
			binary.LittleEndian.Uint32(payload[0:4]), payload[4:12])
	case typ == TypeMessaging && subType == SubTypeMsgMAC && len(payload) >= 33:
		return fmt.Sprintf("MAC(%x,0x%x)", payload[0:6], payload[32])
	case typ == TypeMessaging && subType == SubTypeMsgIPv4 && len(payload) >= 23:
		return fmt.Sprintf("IPv4(%d.%d.%d.%d,%d.%d.%d.%d)",
			payload[0], payload[1], payload[2], payload[3],
			payload[4], payload[5], payload[6], payload[7])
	case typ == TypeMedia && subType == SubTypeMediaHD && len(payload) >= 38:
		sig := fmt.Sprintf("%x", payload[20:36])

		if payload[37] == SignatureGUID {
			if u, err := uuid.FromBytes(gptutil.GUIDToUUID(payload[20:36])); err == nil {
				sig = u.String()
			}
		}

		return fmt.Sprintf("HD(%d,0x%x,0x%x,%s,0x%x,0x%x)",
			binary.LittleEndian.Uint32(payload[0:4]),
			binary.LittleEndian.Uint64(payload[4:12]),
			binary.LittleEndian.Uint64(payload[12:20]),
			sig, payload[36], payload[37])
	case typ == TypeMedia && subType == SubTypeMediaFile:
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(payload)
		if err == nil {
			return fmt.Sprintf("File(%s)", strings.TrimRight(string(decoded), "\x00"))
		}

		return fmt.Sprintf("File(%x)", payload)
	case typ == TypeEnd && subType == SubTypeEndEntire:
		return "End()"
	default:
		return fmt.Sprintf("Path(%d,%d,%d)", typ, subType, len(payload)+4)
	}
}
