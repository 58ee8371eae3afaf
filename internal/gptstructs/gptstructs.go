// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package gptstructs provides definitions and a checked reader for GPT on-disk structures.
package gptstructs

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"slices"

	"github.com/siderolabs/go-efiboot/internal/ioutil"
)

// HeaderSignature is the signature of the GPT header.
const HeaderSignature = 0x5452415020494645 // "EFI PART"

// On-disk sizes.
const (
	HeaderSize = 92
	EntrySize  = 128

	// NumEntries is the number of entries in the GPT.
	NumEntries = 128
)

// Header is a GPT header, backed by one on-disk sector.
type Header []byte

// Signature returns the header signature.
func (h Header) Signature() uint64 { return binary.LittleEndian.Uint64(h[0:8]) }

// GetHeaderSize returns the size of the header structure in bytes.
func (h Header) GetHeaderSize() uint32 { return binary.LittleEndian.Uint32(h[12:16]) }

// HeaderChecksum returns the stored header CRC32.
func (h Header) HeaderChecksum() uint32 { return binary.LittleEndian.Uint32(h[16:20]) }

// MyLBA returns the LBA the header claims to live at.
func (h Header) MyLBA() uint64 { return binary.LittleEndian.Uint64(h[24:32]) }

// FirstUsableLBA returns the first usable LBA for partitions.
func (h Header) FirstUsableLBA() uint64 { return binary.LittleEndian.Uint64(h[40:48]) }

// LastUsableLBA returns the last usable LBA for partitions.
func (h Header) LastUsableLBA() uint64 { return binary.LittleEndian.Uint64(h[48:56]) }

// DiskGUID returns the on-disk (mixed-endian) disk GUID.
func (h Header) DiskGUID() []byte { return h[56:72] }

// EntriesLBA returns the LBA of the partition entry array.
func (h Header) EntriesLBA() uint64 { return binary.LittleEndian.Uint64(h[72:80]) }

// NumPartitionEntries returns the number of entries in the array.
func (h Header) NumPartitionEntries() uint32 { return binary.LittleEndian.Uint32(h[80:84]) }

// EntrySizeOf returns the on-disk size of a single partition entry.
func (h Header) EntrySizeOf() uint32 { return binary.LittleEndian.Uint32(h[84:88]) }

// EntriesChecksum returns the stored CRC32 of the entry array.
func (h Header) EntriesChecksum() uint32 { return binary.LittleEndian.Uint32(h[88:92]) }

// CalculateChecksum calculates the checksum of the header.
func (h Header) CalculateChecksum() uint32 {
	b := slices.Clone(h[:HeaderSize])

	b[16] = 0
	b[17] = 0
	b[18] = 0
	b[19] = 0

	return crc32.ChecksumIEEE(b)
}

// Entry is a single GPT partition entry.
type Entry []byte

// TypeGUID returns the on-disk partition type GUID.
func (e Entry) TypeGUID() []byte { return e[0:16] }

// UniqueGUID returns the on-disk unique partition GUID.
func (e Entry) UniqueGUID() []byte { return e[16:32] }

// StartingLBA returns the first LBA of the partition.
func (e Entry) StartingLBA() uint64 { return binary.LittleEndian.Uint64(e[32:40]) }

// EndingLBA returns the last LBA of the partition (inclusive).
func (e Entry) EndingLBA() uint64 { return binary.LittleEndian.Uint64(e[40:48]) }

// Name returns the UTF-16LE encoded partition name.
func (e Entry) Name() []byte { return e[56:128] }

// IsUsed returns true if the entry has a non-zero type GUID.
func (e Entry) IsUsed() bool {
	for _, b := range e.TypeGUID() {
		if b != 0 {
			return true
		}
	}

	return false
}

// HeaderReader is an interface for reading GPT headers.
type HeaderReader interface {
	io.ReaderAt
	GetSectorSize() uint
}

// ReadHeader reads the GPT header at the given LBA and its partition entries.
//
// It does sanity checks on the header and partition entries; a malformed or
// absent header returns (nil, nil, nil).
func ReadHeader(r HeaderReader, lba, lastLBA uint64) (Header, []Entry, error) {
	sectorSize := r.GetSectorSize()
	buf := make([]byte, sectorSize)

	if err := ioutil.ReadFullAt(r, buf, int64(lba)*int64(sectorSize)); err != nil {
		return nil, nil, err
	}

	hdr := Header(buf)

	if hdr.Signature() != HeaderSignature {
		return nil, nil, nil
	}

	headerSize := hdr.GetHeaderSize()
	if headerSize < HeaderSize || uint(headerSize) > sectorSize {
		return nil, nil, nil
	}

	if hdr.HeaderChecksum() != hdr.CalculateChecksum() {
		return nil, nil, nil
	}

	if hdr.MyLBA() != lba {
		return nil, nil, nil
	}

	firstUsableLBA := hdr.FirstUsableLBA()
	lastUsableLBA := hdr.LastUsableLBA()

	if lastUsableLBA < firstUsableLBA || firstUsableLBA > lastLBA || lastUsableLBA > lastLBA {
		return nil, nil, nil
	}

	// header should be outside the usable range
	if firstUsableLBA < lba && lba < lastUsableLBA {
		return nil, nil, nil
	}

	if hdr.EntrySizeOf() != EntrySize {
		return nil, nil, nil
	}

	if hdr.NumPartitionEntries() == 0 || hdr.NumPartitionEntries() > NumEntries {
		return nil, nil, nil
	}

	entriesBuffer := make([]byte, hdr.NumPartitionEntries()*EntrySize)

	if err := ioutil.ReadFullAt(r, entriesBuffer, int64(hdr.EntriesLBA())*int64(sectorSize)); err != nil {
		return nil, nil, err
	}

	if crc32.ChecksumIEEE(entriesBuffer) != hdr.EntriesChecksum() {
		return nil, nil, nil
	}

	entries := make([]Entry, hdr.NumPartitionEntries())
	for i := range entries {
		entries[i] = Entry(entriesBuffer[i*EntrySize : (i+1)*EntrySize])
	}

	return hdr, entries, nil
}

// ReadAnyHeader reads the primary GPT header falling back to the backup copy.
func ReadAnyHeader(r HeaderReader, lastLBA uint64) (Header, []Entry, error) {
	const primaryLBA = 1

	hdr, entries, err := ReadHeader(r, primaryLBA, lastLBA)
	if err != nil {
		return nil, nil, err
	}

	if hdr == nil {
		hdr, entries, err = ReadHeader(r, lastLBA, lastLBA)
		if err != nil {
			return nil, nil, err
		}
	}

	return hdr, entries, nil
}
