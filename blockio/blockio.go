// Package blockio is the thin adapter over a TinyFS backing file that
// spec.md §4.3 calls "Block I/O": opening/closing the backing storage and
// translating a logical block number into a byte offset, bounds-checked
// against the storage's current length. It knows nothing about superblocks,
// inodes, or directories -- that's the `tinyfs` package's job.
package blockio

import (
	"fmt"
	"io"

	"github.com/tinyfs/tinyfs/backend"
	backendfile "github.com/tinyfs/tinyfs/backend/file"
	"github.com/tinyfs/tinyfs/internal/terrno"
)

// Disk is an open TinyFS backing store, addressed in fixed-size blocks.
type Disk struct {
	storage   backend.Storage
	writable  backend.WritableFile
	blockSize int
}

// Open opens an existing backing file at path for block I/O. It corresponds
// to the original openDisk(filename, 0): the file must already exist and
// its size is not modified.
func Open(path string, blockSize int) (*Disk, error) {
	storage, err := backendfile.OpenFromPath(path, false)
	if err != nil {
		return nil, terrno.TranslateHostError(err)
	}
	return newDisk(storage, blockSize)
}

// Create creates (or truncates) the backing file at path to
// floor(nBytes/blockSize) blocks and opens it for block I/O. It
// corresponds to the original openDisk(filename, nBytes) with nBytes != 0.
func Create(path string, nBytes, blockSize int) (*Disk, error) {
	if nBytes < blockSize {
		return nil, terrno.ErrInvalid
	}
	size := int64((nBytes / blockSize) * blockSize)
	storage, err := backendfile.CreateFromPath(path, size)
	if err != nil {
		return nil, terrno.TranslateHostError(err)
	}
	return newDisk(storage, blockSize)
}

// OpenStorage adapts an already-open backend.Storage (e.g. a backend.Sub
// window into a larger host file) for block I/O, skipping path handling
// entirely.
func OpenStorage(storage backend.Storage, blockSize int) (*Disk, error) {
	return newDisk(storage, blockSize)
}

func newDisk(storage backend.Storage, blockSize int) (*Disk, error) {
	if blockSize <= 0 {
		return nil, terrno.ErrInvalid
	}
	writable, err := storage.Writable()
	if err != nil {
		return nil, terrno.TranslateHostError(err)
	}
	return &Disk{storage: storage, writable: writable, blockSize: blockSize}, nil
}

// Close closes the backing storage.
func (d *Disk) Close() error {
	if err := d.storage.Close(); err != nil {
		return terrno.TranslateHostError(err)
	}
	return nil
}

// BlockSize returns the fixed block size this Disk was opened with.
func (d *Disk) BlockSize() int {
	return d.blockSize
}

// log2phys translates a logical block number to a byte offset, rejecting
// any block whose data would run past the current end of the backing
// storage. It mirrors the original log2phys().
func (d *Disk) log2phys(bNum int) (int64, error) {
	info, err := d.storage.Stat()
	if err != nil {
		return 0, terrno.TranslateHostError(err)
	}
	off := int64(bNum) * int64(d.blockSize)
	if info.Size() < off+int64(d.blockSize) {
		return 0, terrno.ErrInvalid
	}
	return off, nil
}

// ReadBlock reads exactly BlockSize() bytes from logical block bNum into buf.
func (d *Disk) ReadBlock(bNum int, buf []byte) error {
	if len(buf) < d.blockSize {
		return fmt.Errorf("blockio: buffer too small: %d < %d", len(buf), d.blockSize)
	}
	off, err := d.log2phys(bNum)
	if err != nil {
		return err
	}
	n, err := d.storage.ReadAt(buf[:d.blockSize], off)
	if err != nil && err != io.EOF {
		return terrno.TranslateHostError(err)
	}
	if n != d.blockSize {
		return terrno.ErrIO
	}
	return nil
}

// WriteBlock writes exactly BlockSize() bytes from buf to logical block bNum.
func (d *Disk) WriteBlock(bNum int, buf []byte) error {
	if len(buf) < d.blockSize {
		return fmt.Errorf("blockio: buffer too small: %d < %d", len(buf), d.blockSize)
	}
	off, err := d.log2phys(bNum)
	if err != nil {
		return err
	}
	n, err := d.writable.WriteAt(buf[:d.blockSize], off)
	if err != nil {
		return terrno.TranslateHostError(err)
	}
	if n != d.blockSize {
		return terrno.ErrIO
	}
	return nil
}
