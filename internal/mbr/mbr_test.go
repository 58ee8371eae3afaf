// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package mbr_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-efiboot/internal/mbr"
)

func sector0(diskSig uint32, entries ...mbr.Entry) []byte {
	buf := make([]byte, 512)

	buf[0x1fe] = 0x55
	buf[0x1ff] = 0xaa

	binary.LittleEndian.PutUint32(buf[0x1b8:], diskSig)

	for i, e := range entries {
		raw := buf[0x1be+i*16:]
		raw[4] = e.Type

		binary.LittleEndian.PutUint32(raw[8:], e.StartLBA)
		binary.LittleEndian.PutUint32(raw[12:], e.SizeLBA)
	}

	return buf
}

func TestRead(t *testing.T) {
	t.Parallel()

	table, err := mbr.Read(bytes.NewReader(sector0(0xcafebabe,
		mbr.Entry{Type: 0x83, StartLBA: 2048, SizeLBA: 409600},
		mbr.Entry{Type: 0x82, StartLBA: 411648, SizeLBA: 8192},
	)))
	require.NoError(t, err)
	require.NotNil(t, table)

	assert.EqualValues(t, 0xcafebabe, table.DiskSignature)
	assert.True(t, table.HasPartitions())
	assert.False(t, table.IsProtective())

	assert.Equal(t, mbr.Entry{Type: 0x83, StartLBA: 2048, SizeLBA: 409600}, table.Entries[0])
	assert.Equal(t, mbr.Entry{Type: 0x82, StartLBA: 411648, SizeLBA: 8192}, table.Entries[1])
	assert.False(t, table.Entries[2].IsUsed())
}

func TestReadNoMagic(t *testing.T) {
	t.Parallel()

	table, err := mbr.Read(bytes.NewReader(make([]byte, 512)))
	require.NoError(t, err)
	assert.Nil(t, table)
}

func TestProtective(t *testing.T) {
	t.Parallel()

	table, err := mbr.Read(bytes.NewReader(sector0(0,
		mbr.Entry{Type: mbr.TypeProtective, StartLBA: 1, SizeLBA: 2047},
	)))
	require.NoError(t, err)
	require.NotNil(t, table)

	assert.True(t, table.IsProtective())
}

type writerAt struct {
	data []byte
}

func (w *writerAt) WriteAt(p []byte, off int64) (int, error) {
	return copy(w.data[off:], p), nil
}

func TestWriteDiskSignature(t *testing.T) {
	t.Parallel()

	w := &writerAt{data: make([]byte, 512)}

	require.NoError(t, mbr.WriteDiskSignature(w, 0x11223344))

	assert.EqualValues(t, 0x11223344, binary.LittleEndian.Uint32(w.data[0x1b8:]))
}
