// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package devicepath

import (
	"fmt"
	"net"
	"net/netip"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"k8s.io/mount-utils"

	"github.com/siderolabs/go-efiboot/block"
	"github.com/siderolabs/go-efiboot/devicepath/internal/sysfs"
	"github.com/siderolabs/go-efiboot/efidp"
)

// FromDevice builds the device path for a file on a block device.
//
// devPath names the device (whole disk or partition); partition < 0
// asks for discovery: the partition index of a partition device, or the
// first partition of a partitioned whole disk. relPath is the file path
// relative to the filesystem root, empty for a path to the partition
// itself.
func FromDevice(devPath string, partition int, relPath string, abbrev Abbrev, opts ...Option) ([]byte, error) {
	return fromDevice(sysfs.Default(), devPath, partition, relPath, abbrev, applyOptions(opts...))
}

// FromFile builds the device path for a file on a mounted filesystem,
// resolving the backing device from the mount table.
func FromFile(filePath string, abbrev Abbrev, opts ...Option) ([]byte, error) {
	options := applyOptions(opts...)

	mounter := options.Mounter
	if mounter == nil {
		mounter = mount.New("")
	}

	devNode, relPath, err := findFile(mounter, unixStat, filePath)
	if err != nil {
		return nil, err
	}

	options.Logger.Debug("resolved file to device",
		zap.String("device", devNode),
		zap.String("relative_path", relPath),
	)

	return fromDevice(sysfs.Default(), devNode, -1, relPath, abbrev, options)
}

func fromDevice(fs sysfs.FS, devPath string, partition int, relPath string, abbrev Abbrev, options Options) ([]byte, error) {
	st, err := unixStat(devPath)
	if err != nil {
		return nil, err
	}

	var devNo uint64

	switch st.Mode & unix.S_IFMT {
	case unix.S_IFBLK, unix.S_IFCHR:
		devNo = st.Rdev
	default:
		// a regular file stands in for the device it lives on
		devNo = st.Dev
	}

	dev, err := walkDevice(fs, options.Logger, unix.Major(devNo), unix.Minor(devNo), partition)
	if err != nil {
		return nil, err
	}

	openDisk := func(readWrite bool) (Disk, func() error, error) {
		d, err := block.NewFromPath(filepath.Join("/dev", dev.DiskName), block.WithReadWrite(readWrite))
		if err != nil {
			return nil, nil, err
		}

		closer := func() error {
			d.Unlock() //nolint:errcheck

			return d.Close()
		}

		// signature reads must not race partition table edits
		if err = d.Lock(readWrite); err != nil {
			d.Close() //nolint:errcheck

			return nil, nil, err
		}

		size, err := d.GetSize()
		if err != nil {
			closer() //nolint:errcheck

			return nil, nil, err
		}

		return wholeDisk{Device: d, size: size}, closer, nil
	}

	if dev.Part < 0 {
		disk, closer, err := openDisk(false)
		if err != nil {
			return nil, err
		}

		hasTable, err := hasPartitionTable(disk)

		closer() //nolint:errcheck

		if err != nil {
			return nil, err
		}

		part := 0
		if hasTable {
			part = 1
		}

		dev.SetPart(part)
	}

	options.Logger.Debug("building device path",
		zap.String("disk", dev.DiskName),
		zap.String("partition", dev.PartName),
		zap.Int("part", dev.Part),
	)

	dp, err := encodeDevicePath(dev, relPath, abbrev, options, openDisk)
	if err != nil {
		return nil, err
	}

	options.Logger.Debug("encoded device path", zap.String("path", efidp.Format(dp)))

	return dp, nil
}

// wholeDisk adapts a block device to the signature reading surface.
type wholeDisk struct {
	*block.Device

	size uint64
}

func (d wholeDisk) GetSize() uint64 {
	return d.size
}

// IPv4Path builds the device path for PXE-style network boot: a MAC
// node for the interface followed by an IPv4 endpoint node.
func IPv4Path(ifname string, local, remote, gateway, netmask netip.Addr,
	localPort, remotePort, protocol uint16, originStatic bool, opts ...Option,
) ([]byte, error) {
	options := applyOptions(opts...)

	addrs := [4]netip.Addr{local, remote, gateway, netmask}

	var raw [4][4]byte

	for i, a := range addrs {
		if !a.Is4() {
			return nil, fmt.Errorf("%w: %s is not an IPv4 address", ErrInvalidArgument, a)
		}

		raw[i] = a.As4()
	}

	hwaddr, ifType, err := interfaceHWAddr(ifname)
	if err != nil {
		return nil, err
	}

	encode := func(buf []byte) (int, error) {
		off := 0

		sub := func() []byte {
			if buf == nil {
				return nil
			}

			return buf[off:]
		}

		n, err := efidp.MakeMAC(sub(), hwaddr, ifType)
		if err != nil {
			return -1, err
		}

		off += n

		n, err = efidp.MakeIPv4(sub(), raw[0], raw[1], raw[2], raw[3], localPort, remotePort, protocol, originStatic)
		if err != nil {
			return -1, err
		}

		off += n

		n, err = efidp.MakeEndEntire(sub())
		if err != nil {
			return -1, err
		}

		return off + n, nil
	}

	size, err := encode(nil)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, size)

	if _, err = encode(buf); err != nil {
		return nil, err
	}

	options.Logger.Debug("encoded network device path", zap.String("path", efidp.Format(buf)))

	return buf, nil
}

// interfaceHWAddr returns the hardware address of a network interface,
// making sure a real driver backs it.
func interfaceHWAddr(ifname string) ([]byte, byte, error) {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, 0, fmt.Errorf("looking up interface %q: %w", ifname, err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("opening ethtool socket: %w", err)
	}

	defer unix.Close(fd) //nolint:errcheck

	if _, err := unix.IoctlGetEthtoolDrvinfo(fd, ifname); err != nil {
		return nil, 0, fmt.Errorf("querying driver info of %q: %w", ifname, err)
	}

	return iface.HardwareAddr, unix.ARPHRD_ETHER, nil
}
