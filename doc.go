// Package tinyfs implements TinyFS: a compact, single-volume filesystem
// layered on a host file treated as a flat array of fixed-size blocks. A
// TinyFS volume has a superblock with a free-block bitmap, a single flat
// root directory, and per-file inode/extent block chains.
//
// Typical use:
//
//	if err := tinyfs.Mkfs("disk.img", 10*tinyfs.DefaultBlockSize); err != nil {
//		...
//	}
//	vol, err := tinyfs.Mount("disk.img")
//	if err != nil {
//		...
//	}
//	defer vol.Unmount()
//
//	f, err := vol.OpenFile("greeting")
//	...
//	_, err = f.Write([]byte("hello"))
//	...
//	f.Close()
//
// TinyFS is deliberately small: a single mounted Volume at a time, no
// journaling, no hierarchical directories, and a one-block read/write
// buffer per open file. See spec.md and SPEC_FULL.md in this module's
// repository for the full design.
package tinyfs
