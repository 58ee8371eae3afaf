// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package block

// Options is the set of options for opening a device.
type Options struct {
	// ReadWrite opens the device for writing.
	ReadWrite bool
}

// Option is an option for opening a device.
type Option func(*Options)

// WithReadWrite opens the device for writing.
func WithReadWrite(readWrite bool) Option {
	return func(o *Options) {
		o.ReadWrite = readWrite
	}
}

func applyOptions(opts ...Option) Options {
	var o Options

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
