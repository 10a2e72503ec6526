package tinyfs

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tinyfs/tinyfs/backend"
	"github.com/tinyfs/tinyfs/blockio"
	"github.com/tinyfs/tinyfs/internal/bitset"
	"github.com/tinyfs/tinyfs/internal/seq"
)

// Volume is the in-memory state of a mounted TinyFS disk: the superblock
// mirror, the root-directory inode mirror, the mounted-disk handle and the
// open-file table (spec.md §3.7, §9 -- re-architected as an explicit value
// rather than the original's process-wide globals).
type Volume struct {
	disk      *blockio.Disk
	blockSize int
	nBlocks   int

	freeMap *bitset.Set
	root    inodeBody

	superDirty bool
	rootDirty  bool

	openFiles     *seq.Seq[*fileState]
	nextFDHint    int // -1: no hint
	nextBlockHint int // -1: no hint

	log       logrus.FieldLogger
	sessionID uuid.UUID
}

// fileState is one open-file-table slot (spec.md §3.7's OpenFile).
type fileState struct {
	inode    int // inode block number; a free slot is a nil table entry
	parent   int
	name     string
	flags    byte
	ptr      int
	size     int
	bufBlock int // block number currently buffered, -1 if none
	buf      []byte
}

// mounted is the package-level convenience slot spec.md §9 allows
// ("optionally keep a ... module-level slot holding an optional Volume for
// convenience"); it is what makes mount's TXTBUSY-if-already-mounted rule
// (spec.md §4.5) meaningful without every caller threading a singleton
// through themselves. All the actual logic lives on *Volume.
var mounted *Volume

// Mkfs formats path as a fresh TinyFS volume of floor(nBytes/blockSize)
// blocks (spec.md §4.4).
func Mkfs(path string, nBytes int, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	disk, err := blockio.Create(path, nBytes, cfg.blockSize)
	if err != nil {
		return wrapHostErr("mkfs", err)
	}
	defer disk.Close()
	return mkfs(disk, cfg)
}

func mkfs(disk *blockio.Disk, cfg config) error {
	blockSize := cfg.blockSize
	nBlocks, err := countBlocks(disk, blockSize)
	if err != nil {
		return err
	}
	if nBlocks > MaxBlocks {
		return newErr("mkfs", CodeInvalid)
	}
	cfg.logger.WithField("blocks", nBlocks).Debug("tinyfs: formatting volume")

	buf := make([]byte, blockSize)
	for i := 2; i < nBlocks; i++ {
		for j := range buf {
			buf[j] = 0
		}
		blockHeader{kind: kindFree, magic: blockMagic}.encode(buf)
		if err := disk.WriteBlock(i, buf); err != nil {
			return wrapHostErr("mkfs", err)
		}
	}

	for j := range buf {
		buf[j] = 0
	}
	blockHeader{kind: kindInode, magic: blockMagic}.encode(buf)
	inodeBody{flags: FlagIsDir | FlagRead | FlagWrite}.encode(buf)
	if err := disk.WriteBlock(1, buf); err != nil {
		return wrapHostErr("mkfs", err)
	}

	for j := range buf {
		buf[j] = 0
	}
	blockHeader{kind: kindSuper, magic: blockMagic, next: 1}.encode(buf)
	freeMap := bitset.New(nBlocks)
	for i := 2; i < nBlocks; i++ {
		freeMap.Set(i)
	}
	superblockBody{nBlocks: byte(nBlocks), freeMap: freeMap.Bytes()}.encode(buf)
	if err := disk.WriteBlock(0, buf); err != nil {
		return wrapHostErr("mkfs", err)
	}
	return nil
}

func countBlocks(disk *blockio.Disk, blockSize int) (int, error) {
	// the disk was just created/truncated to an exact multiple of
	// blockSize by blockio.Create, so its block count is simply however
	// many whole blocks fit -- probe by attempting to address them.
	n := 0
	buf := make([]byte, blockSize)
	for {
		if err := disk.ReadBlock(n, buf); err != nil {
			break
		}
		n++
		if n > MaxBlocks {
			break
		}
	}
	return n, nil
}

// Mount opens path, verifies it, and returns a ready-to-use Volume
// (spec.md §4.5). Only one volume may be mounted at a time; mounting a
// second returns ErrTxtBusy.
func Mount(path string, opts ...Option) (*Volume, error) {
	if mounted != nil {
		return nil, newErr("mount", CodeTxtBusy)
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	disk, err := blockio.Open(path, cfg.blockSize)
	if err != nil {
		return nil, wrapHostErr("mount", err)
	}
	vol, err := mountDisk(disk, cfg)
	if err != nil {
		disk.Close()
		return nil, err
	}
	mounted = vol
	return vol, nil
}

// MountStorage mounts a volume backed by an already-open backend.Storage,
// e.g. a backend.Sub window into a larger host file.
func MountStorage(storage backend.Storage, opts ...Option) (*Volume, error) {
	if mounted != nil {
		return nil, newErr("mount", CodeTxtBusy)
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	disk, err := blockio.OpenStorage(storage, cfg.blockSize)
	if err != nil {
		return nil, wrapHostErr("mount", err)
	}
	vol, err := mountDisk(disk, cfg)
	if err != nil {
		disk.Close()
		return nil, err
	}
	mounted = vol
	return vol, nil
}

func mountDisk(disk *blockio.Disk, cfg config) (*Volume, error) {
	sessionID := uuid.New()
	log := cfg.logger.WithField("tinyfs.session", sessionID.String())

	buf := make([]byte, cfg.blockSize)
	if err := disk.ReadBlock(0, buf); err != nil {
		return nil, wrapHostErr("mount", err)
	}
	hdr := decodeHeader(buf)
	if !hdr.wellFormed() || hdr.kind != kindSuper || hdr.next != 1 {
		log.Warn("tinyfs: superblock failed verification")
		return nil, newErr("mount", CodeInvalid)
	}
	super := decodeSuperblock(buf)
	nBlocks := int(super.nBlocks)

	for i := 2; i < nBlocks; i++ {
		if err := disk.ReadBlock(i, buf); err != nil {
			return nil, wrapHostErr("mount", err)
		}
		if !decodeHeader(buf).wellFormed() {
			log.WithField("block", i).Warn("tinyfs: corrupt block during verify")
			return nil, newErr("mount", CodeInvalid)
		}
	}

	if err := disk.ReadBlock(1, buf); err != nil {
		return nil, wrapHostErr("mount", err)
	}
	rootHdr := decodeHeader(buf)
	if !rootHdr.wellFormed() || rootHdr.kind != kindInode {
		return nil, newErr("mount", CodeInvalid)
	}
	root := decodeInode(buf)

	vol := &Volume{
		disk:          disk,
		blockSize:     cfg.blockSize,
		nBlocks:       nBlocks,
		freeMap:       bitset.FromBytes(super.freeMap),
		root:          root,
		openFiles:     seq.New[*fileState](DefaultOpenFileTableCap),
		nextFDHint:    -1,
		nextBlockHint: -1,
		log:           log,
		sessionID:     sessionID,
	}
	log.WithField("blocks", nBlocks).Debug("tinyfs: mounted volume")
	return vol, nil
}

// Unmount flushes the superblock and root directory, closes the backing
// disk, and releases the open-file table (spec.md §4.5).
func (v *Volume) Unmount() error {
	if v.disk == nil {
		return newErr("unmount", CodeBadF)
	}
	if err := v.flushSuperblock(); err != nil {
		return err
	}
	if err := v.flushRoot(); err != nil {
		return err
	}
	if err := v.disk.Close(); err != nil {
		return wrapHostErr("unmount", err)
	}
	v.log.Debug("tinyfs: unmounted volume")
	v.openFiles.Free()
	v.disk = nil
	if mounted == v {
		mounted = nil
	}
	return nil
}

func (v *Volume) flushSuperblock() error {
	buf := make([]byte, v.blockSize)
	blockHeader{kind: kindSuper, magic: blockMagic, next: 1}.encode(buf)
	superblockBody{nBlocks: byte(v.nBlocks), freeMap: v.freeMap.Bytes()}.encode(buf)
	if err := v.disk.WriteBlock(0, buf); err != nil {
		return wrapHostErr("unmount", err)
	}
	v.superDirty = false
	return nil
}

// flushRoot writes the root inode's metadata (§3.4) back to block 1. It
// reads the block first and only overwrites the header and metadata
// fields: the entries area past inodeHeaderSize and the header's `next`
// chain pointer belong to the directory-entry table, which
// insertDirEntry/writeDirSlot already write through to disk directly, and
// must survive unmount/remount untouched.
func (v *Volume) flushRoot() error {
	buf := make([]byte, v.blockSize)
	if err := v.disk.ReadBlock(1, buf); err != nil {
		return wrapHostErr("unmount", err)
	}
	hdr := decodeHeader(buf)
	hdr.kind = kindInode
	hdr.magic = blockMagic
	hdr.encode(buf)
	v.root.encode(buf)
	if err := v.disk.WriteBlock(1, buf); err != nil {
		return wrapHostErr("unmount", err)
	}
	v.rootDirty = false
	return nil
}

// nextFreeBlock implements spec.md §4.6's allocator: the cached hint, set
// when a block is freed, is consumed first; otherwise the lowest set
// free-map bit (the lowest-numbered free block) is used. It does not mark the block allocated -- the
// caller clears its free-map bit only after the block has been
// successfully written.
func (v *Volume) nextFreeBlock() int {
	if v.nextBlockHint >= 0 {
		b := v.nextBlockHint
		v.nextBlockHint = -1
		return b
	}
	b := v.freeMap.CTZ(v.nBlocks)
	if b < v.nBlocks {
		return b
	}
	return -1
}

// freeBlock marks block b free in the free-map and records it as the
// allocator's next hint.
func (v *Volume) freeBlock(b int) {
	v.freeMap.Set(b)
	v.superDirty = true
	if v.nextBlockHint < 0 {
		v.nextBlockHint = b
	}
}

// allocBlock marks block b allocated (clears its free-map bit). Called
// only after the block has actually been written to disk.
func (v *Volume) allocBlock(b int) {
	v.freeMap.Clear(b)
	v.superDirty = true
}

func (v *Volume) readBlock(bNum int, buf []byte) error {
	if err := v.disk.ReadBlock(bNum, buf); err != nil {
		return err
	}
	v.log.WithField("block", bNum).Debug("tinyfs: read block")
	return nil
}

func (v *Volume) writeBlock(bNum int, buf []byte) error {
	if err := v.disk.WriteBlock(bNum, buf); err != nil {
		return err
	}
	v.log.WithField("block", bNum).Debug("tinyfs: wrote block")
	return nil
}

// wrapHostErr translates a host/blockio error into the taxonomy if it
// isn't already one, tagging it with op.
func wrapHostErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if tfsErr, ok := err.(*Error); ok {
		if tfsErr.Op == "" {
			return &Error{Op: op, Code: tfsErr.Code, Err: tfsErr.Err}
		}
		return tfsErr
	}
	return newErr(op, CodeIO)
}
