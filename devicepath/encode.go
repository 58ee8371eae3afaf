// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package devicepath

import (
	"fmt"
	"strings"

	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
	"github.com/siderolabs/go-efiboot/efidp"
)

// diskOpener opens the whole-disk device of the target; readWrite is
// set when a signature might need to be written back.
type diskOpener func(readWrite bool) (Disk, func() error, error)

// encodeDevicePath assembles the device path for a discovered device:
// the hardware topology (or its abbreviation), the partition signature
// node, the file path node and the terminator.
func encodeDevicePath(dev *probe.Device, relPath string, abbrev Abbrev, opts Options, openDisk diskOpener) ([]byte, error) {
	abbrev, err := normalizeAbbrev(dev, relPath, abbrev)
	if err != nil {
		return nil, err
	}

	needHD := (abbrev&AbbrevFile == 0 && dev.PartName != "") ||
		(abbrev&AbbrevHD != 0 && dev.PartName == "")

	var disk Disk

	if needHD {
		d, closer, err := openDisk(opts.WriteSignature)
		if err != nil {
			return nil, err
		}

		defer closer() //nolint:errcheck

		disk = d
	}

	encode := func(buf []byte) (int, error) {
		off := 0

		sub := func() []byte {
			if buf == nil {
				return nil
			}

			return buf[off:]
		}

		switch {
		case abbrev&AbbrevEDD10 != 0:
			n, err := efidp.MakeEDD10(sub(), opts.EDD10DeviceNum)
			if err != nil {
				return -1, err
			}

			off += n
		case abbrev&(AbbrevFile|AbbrevHD) == 0:
			for _, p := range dev.Probes {
				maker, ok := p.(probe.NodeMaker)
				if !ok {
					continue
				}

				n, err := maker.MakeNode(dev, sub())
				if err != nil {
					return -1, err
				}

				off += n
			}
		}

		if needHD {
			n, err := makeHDNode(sub(), disk, dev.Part, opts.WriteSignature)
			if err != nil {
				return -1, err
			}

			off += n
		}

		if relPath != "" {
			n, err := efidp.MakeFile(sub(), tiltSlashes(relPath))
			if err != nil {
				return -1, err
			}

			off += n
		}

		n, err := efidp.MakeEndEntire(sub())
		if err != nil {
			return -1, err
		}

		off += n

		return off, nil
	}

	size, err := encode(nil)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, size)

	if _, err = encode(buf); err != nil {
		return nil, err
	}

	return buf, nil
}

// normalizeAbbrev reconciles the requested abbreviation with what the
// device can provide.
func normalizeAbbrev(dev *probe.Device, relPath string, abbrev Abbrev) (Abbrev, error) {
	// whole-disk paths carry no partition signature, so only the full
	// topology form makes sense
	if dev.Part == 0 {
		abbrev = AbbrevNone
	}

	if abbrev&AbbrevNone != 0 {
		abbrev &^= AbbrevHD | AbbrevFile | AbbrevEDD10
	}

	if dev.Flags&probe.AbbrevOnly != 0 && abbrev&(AbbrevHD|AbbrevFile) == 0 {
		return 0, fmt.Errorf("%w: device supports only HD() or File() abbreviated paths", ErrInvalidArgument)
	}

	if abbrev&AbbrevFile != 0 && relPath == "" {
		return 0, fmt.Errorf("%w: file abbreviation requires a file path", ErrInvalidArgument)
	}

	return abbrev, nil
}

// tiltSlashes converts a POSIX relative path into the backslash form
// EFI firmware expects.
func tiltSlashes(path string) string {
	return strings.ReplaceAll(path, "/", "\\")
}
