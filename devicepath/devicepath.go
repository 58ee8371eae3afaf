// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package devicepath builds EFI device paths for local storage and
// network boot targets.
//
// The package discovers the hardware topology of a block device via
// sysfs and encodes it as a binary EFI device path suitable for boot
// variable payloads. All encoders follow a two-pass protocol: call with
// a nil buffer to size the result, then with a buffer of at least that
// size to fill it.
package devicepath

import (
	"errors"

	"go.uber.org/zap"
	"k8s.io/mount-utils"
)

// Abbrev selects how much of the hardware topology is encoded.
type Abbrev uint32

// Abbreviation flags. Zero value encodes the full topology.
const (
	// AbbrevHD replaces the hardware topology with a partition
	// signature node.
	AbbrevHD Abbrev = 1 << iota
	// AbbrevFile drops everything but the file path node.
	AbbrevFile
	// AbbrevEDD10 replaces the hardware topology with an EDD 1.0
	// vendor node.
	AbbrevEDD10
	// AbbrevNone forces the full topology even for devices which
	// default to an abbreviated form.
	AbbrevNone Abbrev = 0x80000000
)

// Errors returned by path construction.
var (
	// ErrNoMountpoint is returned when no mounted filesystem contains
	// the target file.
	ErrNoMountpoint = errors.New("no mountpoint found for file")

	// ErrParse is returned when a sysfs topology link cannot be
	// understood.
	ErrParse = errors.New("topology link parse error")

	// ErrUnsupported is returned for device or platform combinations
	// the encoder has no representation for.
	ErrUnsupported = errors.New("unsupported device")

	// ErrBufferTooSmall is returned when a caller-supplied buffer does
	// not fit the encoded path.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrInvalidArgument is returned for argument combinations that
	// cannot produce a valid path.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownInterface is returned when a device's storage interface
	// cannot be determined and no abbreviated form was requested.
	ErrUnknownInterface = errors.New("unknown storage interface")

	// ErrNameTooLong is returned when symlink canonicalization exceeds
	// the system path limit.
	ErrNameTooLong = errors.New("file name too long")
)

// Options configure path construction.
type Options struct {
	Logger  *zap.Logger
	Mounter mount.Interface

	// WriteSignature enables generating and persisting an MBR disk
	// signature when the disk has none.
	WriteSignature bool

	// EDD10DeviceNum is the BIOS device number encoded into EDD 1.0
	// vendor nodes.
	EDD10DeviceNum uint32
}

// Option customizes path construction.
type Option func(*Options)

// WithLogger sets the logger for discovery tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMounter overrides the mount table source.
func WithMounter(mounter mount.Interface) Option {
	return func(o *Options) {
		o.Mounter = mounter
	}
}

// WithWriteSignature enables writing a generated MBR disk signature
// when the disk has none.
func WithWriteSignature(enabled bool) Option {
	return func(o *Options) {
		o.WriteSignature = enabled
	}
}

// WithEDD10DeviceNum sets the BIOS device number for EDD 1.0 nodes.
// The default is 0x80, the first BIOS hard disk.
func WithEDD10DeviceNum(num uint32) Option {
	return func(o *Options) {
		o.EDD10DeviceNum = num
	}
}

// DefaultEDD10DeviceNum is the first BIOS hard disk.
const DefaultEDD10DeviceNum = 0x80

func applyOptions(opts ...Option) Options {
	options := Options{
		Logger:         zap.NewNop(),
		EDD10DeviceNum: DefaultEDD10DeviceNum,
	}

	for _, opt := range opts {
		opt(&options)
	}

	return options
}
