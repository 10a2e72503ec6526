//go:build !(aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris)
// +build !aix,!darwin,!dragonfly,!freebsd,!linux,!netbsd,!openbsd,!solaris

package blockio

import "github.com/tinyfs/tinyfs/internal/terrno"

// DeviceSize returns the size in bytes of the backing store. On platforms
// without a BLKGETSIZE64-style ioctl this is always just Stat's size.
func (d *Disk) DeviceSize() (int64, error) {
	info, err := d.storage.Stat()
	if err != nil {
		return 0, terrno.TranslateHostError(err)
	}
	return info.Size(), nil
}
