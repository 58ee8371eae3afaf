// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package devicepath

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/siderolabs/go-efiboot/devicepath/internal/chain"
	"github.com/siderolabs/go-efiboot/devicepath/internal/probe"
	"github.com/siderolabs/go-efiboot/devicepath/internal/sysfs"
	"github.com/siderolabs/go-efiboot/partitioning"
)

// walkDevice resolves the hardware topology of a block device from its
// device numbers by matching bus probes against the sysfs topology
// link.
//
// part < 0 means the partition index is not known yet; it is filled
// from the sysfs partition attribute when the device numbers name a
// partition, and left unresolved otherwise.
func walkDevice(fs sysfs.FS, logger *zap.Logger, major, minor uint32, part int) (*probe.Device, error) {
	dev := &probe.Device{
		SysFS: fs,
		Major: major,
		Minor: minor,
		Part:  part,
	}

	devNo := fmt.Sprintf("%d:%d", major, minor)

	link, err := fs.Readlink("dev", "block", devNo)
	if err != nil {
		return nil, fmt.Errorf("resolving topology link of %s: %w", devNo, err)
	}

	dev.Link = link

	if dev.Part < 0 {
		value, err := fs.ReadInt("dev", "block", devNo, "partition")

		switch {
		case err == nil:
			dev.Part = value
		case errors.Is(err, os.ErrNotExist):
			// whole disk devices have no partition attribute; the
			// caller decides between "no table" and "first partition"
		default:
			return nil, fmt.Errorf("reading partition attribute of %s: %w", devNo, err)
		}
	}

	if err = setDiskAndPartName(dev); err != nil {
		return nil, err
	}

	logger.Debug("walking topology link",
		zap.String("link", dev.Link),
		zap.String("disk", dev.DiskName),
		zap.Int("part", dev.Part),
	)

	if err = matchProbes(dev, chain.Default(), logger); err != nil {
		return nil, err
	}

	if dev.PartName == "" && dev.Part > 0 {
		dev.ResetPartName()
	}

	return dev, nil
}

// matchProbes runs the bus probe chain over the topology link.
//
// Probes run in chain order, each consuming the segments it recognizes.
// An unrecognized segment is skipped and matching resumes from the last
// successful probe, but the device is then restricted to abbreviated
// paths. Matching stops at the block/ tail of the link.
func matchProbes(dev *probe.Device, probes chain.Chain, logger *zap.Logger) error {
	current := dev.Link

	needsRoot := true

	i, lastMatched := 0, 0

	for current != "" && !strings.HasPrefix(current, "block/") {
		if i >= len(probes) {
			slash := strings.IndexByte(current, '/')
			if slash < 0 {
				// the remainder is the device's own name, not a bus
				// segment
				break
			}

			logger.Debug("skipping unrecognized segment", zap.String("segment", current[:slash+1]))

			current = current[slash+1:]
			dev.Flags |= probe.AbbrevOnly
			i = lastMatched

			continue
		}

		p := probes[i]

		if !needsRoot && p.Flags()&probe.ProvidesRoot != 0 {
			i++

			continue
		}

		n, err := p.Match(dev, current)
		if err != nil {
			return fmt.Errorf("%w: probe %s: %s", ErrParse, p.Name(), err)
		}

		if n == 0 {
			i++

			continue
		}

		logger.Debug("probe matched",
			zap.String("probe", p.Name()),
			zap.String("claimed", current[:n]),
		)

		dev.Probes = append(dev.Probes, p)
		dev.Flags |= p.Flags()

		// a signature-addressed or abbreviation-only device needs no
		// bus root either
		if p.Flags()&(probe.ProvidesRoot|probe.ProvidesHD|probe.AbbrevOnly) != 0 {
			needsRoot = false
		}

		current = current[n:]
		lastMatched = i
		i++
	}

	if dev.Interface == probe.Unknown && dev.Flags&probe.AbbrevOnly == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownInterface, dev.Link)
	}

	return nil
}

// setDiskAndPartName derives the disk and partition device names from
// the tail of the topology link.
func setDiskAndPartName(dev *probe.Device) error {
	segs := strings.Split(dev.Link, "/")

	seg := func(fromEnd int) string {
		if fromEnd >= len(segs) {
			return ""
		}

		return segs[len(segs)-1-fromEnd]
	}

	ultimate, penultimate, approximate, proximate, distal := seg(0), seg(1), seg(2), seg(3), seg(4)

	switch {
	case penultimate == "block":
		// '.../block/sda'
		dev.DiskName = ultimate
	case approximate == "block":
		// '.../block/sda/sda1'
		dev.DiskName = penultimate
		classifyPart(dev, ultimate)
	case approximate == "nvme" || approximate == "nvme-subsystem":
		// '.../nvme/nvme0/nvme0n1'
		dev.DiskName = ultimate
	case proximate == "nvme" || proximate == "nvme-subsystem":
		// '.../nvme/nvme0/nvme0n1/nvme0n1p1'
		dev.DiskName = penultimate
		classifyPart(dev, ultimate)
	case proximate == "nvme-fabrics":
		// '.../nvme-fabrics/ctl/nvme0/nvme0n1'
		dev.DiskName = ultimate
	case distal == "nvme-fabrics":
		// '.../nvme-fabrics/ctl/nvme0/nvme0n1/nvme0n1p1'
		dev.DiskName = penultimate
		classifyPart(dev, ultimate)
	case strings.HasPrefix(penultimate, "mtd"):
		// '.../mtd/mtdblock0'
		dev.DiskName = ultimate
	default:
		return fmt.Errorf("%w: cannot derive device name from %q", ErrParse, dev.Link)
	}

	return nil
}

// classifyPart records the partition device name, falling back to its
// numeric suffix when the sysfs partition attribute did not resolve the
// index.
func classifyPart(dev *probe.Device, name string) {
	if dev.Part < 0 {
		if _, part := partitioning.Split(name); part > 0 {
			dev.Part = int(part)
		}
	}

	dev.SetPartName(name)
}
