package tinyfs

import "github.com/sirupsen/logrus"

// config holds the options Mkfs and Mount accept.
type config struct {
	blockSize int
	logger    logrus.FieldLogger
}

func defaultConfig() config {
	return config{
		blockSize: DefaultBlockSize,
		logger:    logrus.StandardLogger(),
	}
}

// Option configures Mkfs or Mount.
type Option func(*config)

// WithBlockSize overrides the default block size (256). mkfs and mount of
// the same volume must agree on this value.
func WithBlockSize(size int) Option {
	return func(c *config) { c.blockSize = size }
}

// WithLogger attaches a structured logger. Successful block reads/writes,
// formatting, mount/unmount and file open/close/write/delete are logged at
// Debug, and mount-time verification failures at Warn. Block allocation
// and free, errors returned to the caller, and host I/O failures are not
// logged. Defaults to logrus's standard logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *config) { c.logger = logger }
}
