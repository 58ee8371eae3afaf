// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package mbr provides a minimal reader for MBR (msdos) partition tables.
package mbr

import (
	"encoding/binary"
	"io"

	"github.com/siderolabs/go-efiboot/internal/ioutil"
)

// On-disk offsets within sector 0.
const (
	signatureOffset = 0x1b8
	tableOffset     = 0x1be
	bootMagicOffset = 0x1fe

	// NumEntries is the number of primary partition entries.
	NumEntries = 4

	entrySize = 16

	// TypeProtective is the partition type of the GPT protective entry.
	TypeProtective = 0xee
)

// Entry is a single primary partition entry.
type Entry struct {
	Type     byte
	StartLBA uint32
	SizeLBA  uint32
}

// IsUsed returns true if the entry describes a partition.
func (e Entry) IsUsed() bool {
	return e.Type != 0 && e.SizeLBA != 0
}

// Table is a decoded MBR.
type Table struct {
	// DiskSignature is the 32-bit NT disk signature.
	DiskSignature uint32

	Entries [NumEntries]Entry
}

// IsProtective returns true if the table only shields a GPT.
func (t *Table) IsProtective() bool {
	return t.Entries[0].Type == TypeProtective
}

// HasPartitions returns true if any primary entry is in use.
func (t *Table) HasPartitions() bool {
	for _, e := range t.Entries {
		if e.IsUsed() {
			return true
		}
	}

	return false
}

// Read decodes the MBR from sector 0.
//
// A missing boot signature returns (nil, nil).
func Read(r io.ReaderAt) (*Table, error) {
	buf := make([]byte, 512)

	if err := ioutil.ReadFullAt(r, buf, 0); err != nil {
		return nil, err
	}

	if buf[bootMagicOffset] != 0x55 || buf[bootMagicOffset+1] != 0xaa {
		return nil, nil
	}

	table := &Table{
		DiskSignature: binary.LittleEndian.Uint32(buf[signatureOffset:]),
	}

	for i := range table.Entries {
		entry := buf[tableOffset+i*entrySize:]

		table.Entries[i] = Entry{
			Type:     entry[4],
			StartLBA: binary.LittleEndian.Uint32(entry[8:12]),
			SizeLBA:  binary.LittleEndian.Uint32(entry[12:16]),
		}
	}

	return table, nil
}

// WriteDiskSignature persists a new NT disk signature into sector 0.
func WriteDiskSignature(w io.WriterAt, signature uint32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, signature)

	return ioutil.WriteFullAt(w, buf, signatureOffset)
}
