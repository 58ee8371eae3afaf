// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package devicepath

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/siderolabs/go-efiboot/efidp"
	"github.com/siderolabs/go-efiboot/internal/gptstructs"
	"github.com/siderolabs/go-efiboot/internal/gptutil"
	"github.com/siderolabs/go-efiboot/internal/mbr"
)

// Disk is the I/O surface needed to locate a partition signature.
type Disk interface {
	io.ReaderAt
	io.WriterAt

	GetSectorSize() uint
	GetSize() uint64
}

// makeHDNode encodes the HD() node for the given 1-based partition,
// reading the partition signature from the disk. GPT is preferred, with
// a fallback to the primary entries of a plain MBR.
func makeHDNode(buf []byte, disk Disk, partition int, writeSignature bool) (int, error) {
	if partition < 1 {
		return -1, fmt.Errorf("%w: partition %d", ErrInvalidArgument, partition)
	}

	lastLBA, ok := gptutil.LastLBA(disk)
	if !ok {
		return -1, fmt.Errorf("%w: device smaller than a sector", ErrInvalidArgument)
	}

	hdr, entries, err := gptstructs.ReadAnyHeader(disk, lastLBA)
	if err != nil {
		return -1, err
	}

	if hdr != nil {
		return makeGPTNode(buf, entries, partition)
	}

	table, err := mbr.Read(disk)
	if err != nil {
		return -1, err
	}

	if table == nil || table.IsProtective() {
		return -1, fmt.Errorf("%w: no usable partition table", ErrUnsupported)
	}

	return makeMBRNode(buf, disk, table, partition, writeSignature)
}

func makeGPTNode(buf []byte, entries []gptstructs.Entry, partition int) (int, error) {
	if partition > len(entries) {
		return -1, fmt.Errorf("%w: partition %d out of range", ErrInvalidArgument, partition)
	}

	entry := entries[partition-1]
	if !entry.IsUsed() {
		return -1, fmt.Errorf("%w: partition %d is not defined", ErrInvalidArgument, partition)
	}

	// the signature is the unique partition GUID in its on-disk
	// (mixed-endian) form
	var signature [16]byte

	copy(signature[:], entry.UniqueGUID())

	return efidp.MakeHD(buf,
		uint32(partition),
		entry.StartingLBA(),
		entry.EndingLBA()-entry.StartingLBA()+1,
		signature,
		efidp.FormatGPT,
		efidp.SignatureGUID,
	)
}

func makeMBRNode(buf []byte, disk Disk, table *mbr.Table, partition int, writeSignature bool) (int, error) {
	if partition > mbr.NumEntries {
		return -1, fmt.Errorf("%w: partition %d out of range for an MBR disk", ErrInvalidArgument, partition)
	}

	entry := table.Entries[partition-1]
	if !entry.IsUsed() {
		return -1, fmt.Errorf("%w: partition %d is not defined", ErrInvalidArgument, partition)
	}

	diskSig := table.DiskSignature

	if diskSig == 0 && writeSignature {
		// a zero NT signature is indistinguishable from "none"; mint a
		// random one so the HD() node can match the disk
		newSig := uuid.New()

		diskSig = binary.LittleEndian.Uint32(newSig[:4])

		if err := mbr.WriteDiskSignature(disk, diskSig); err != nil {
			return -1, fmt.Errorf("writing disk signature: %w", err)
		}
	}

	var signature [16]byte

	binary.LittleEndian.PutUint32(signature[:4], diskSig)

	return efidp.MakeHD(buf,
		uint32(partition),
		uint64(entry.StartLBA),
		uint64(entry.SizeLBA),
		signature,
		efidp.FormatMBR,
		efidp.SignatureMBR,
	)
}

// hasPartitionTable reports whether the disk carries a GPT or a
// populated non-protective MBR.
func hasPartitionTable(disk Disk) (bool, error) {
	lastLBA, ok := gptutil.LastLBA(disk)
	if !ok {
		return false, nil
	}

	hdr, _, err := gptstructs.ReadAnyHeader(disk, lastLBA)
	if err != nil {
		return false, err
	}

	if hdr != nil {
		return true, nil
	}

	table, err := mbr.Read(disk)
	if err != nil {
		return false, err
	}

	return table != nil && table.HasPartitions(), nil
}
