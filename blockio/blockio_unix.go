//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

package blockio

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/tinyfs/tinyfs/internal/terrno"
)

// blkgetsize64 is the Linux BLKGETSIZE64 ioctl request number.
const blkgetsize64 = 0x80081272

// DeviceSize returns the size in bytes of the backing store when it is a
// real block device, via the BLKGETSIZE64 ioctl, bypassing any stale
// size cached from the device's partition table. For an ordinary
// regular-file-backed volume it falls back to Stat.
func (d *Disk) DeviceSize() (int64, error) {
	info, err := d.storage.Stat()
	if err != nil {
		return 0, terrno.TranslateHostError(err)
	}
	if info.Mode()&os.ModeDevice == 0 {
		return info.Size(), nil
	}
	osFile, err := d.storage.Sys()
	if err != nil {
		return 0, terrno.TranslateHostError(err)
	}
	size, err := unix.IoctlGetUint64(int(osFile.Fd()), blkgetsize64)
	if err != nil {
		return 0, terrno.TranslateHostError(err)
	}
	return int64(size), nil
}
