package tinyfs

// Block kinds, the first byte of every block's header (spec.md §3.2).
const (
	kindSuper  = 1
	kindInode  = 2
	kindExtent = 3
	kindFree   = 4
)

const (
	blockMagic = 0x44

	// headerSize is the 4-byte header present on every block.
	headerSize = 4

	// MaxFilenameSize is the maximum length of a TinyFS filename.
	MaxFilenameSize = 8

	// inodeHeaderSize is the header plus the fixed inode metadata fields
	// that precede a file's data: parent(1) + name(8) + size(4) + flags(1).
	inodeHeaderSize = headerSize + 1 + MaxFilenameSize + 4 + 1 // = 18

	// dirEntrySize is the size of one packed directory entry: an 8-byte
	// name plus a 1-byte child inode block number.
	dirEntrySize = MaxFilenameSize + 1

	// DefaultBlockSize is the block size spec.md calls "typically 256".
	DefaultBlockSize = 256

	// MaxBlocks is the largest volume size supported: the block header's
	// `next` field and the superblock's nBlocks field are each one byte.
	MaxBlocks = 256

	// DefaultOpenFileTableCap is the open-file table's initial capacity.
	DefaultOpenFileTableCap = 32
)

// Flag bits for an inode's flags byte (spec.md §3.4).
const (
	FlagIsDir = 1 << 0
	FlagWrite = 1 << 1
	FlagRead  = 1 << 2
)

// inodeDataSize is the number of file-data bytes that fit in an inode
// block of the given blockSize.
func inodeDataSize(blockSize int) int {
	return blockSize - inodeHeaderSize
}

// extentDataSize is the number of file-data bytes that fit in an extent
// block of the given blockSize.
func extentDataSize(blockSize int) int {
	return blockSize - headerSize
}

// blockHeader is the first 4 bytes of every block.
type blockHeader struct {
	kind     byte
	magic    byte
	next     byte
	reserved byte
}

func decodeHeader(buf []byte) blockHeader {
	return blockHeader{kind: buf[0], magic: buf[1], next: buf[2], reserved: buf[3]}
}

func (h blockHeader) encode(buf []byte) {
	buf[0], buf[1], buf[2], buf[3] = h.kind, h.magic, h.next, h.reserved
}

// wellFormed implements spec.md §3.2's well-formedness predicate.
func (h blockHeader) wellFormed() bool {
	return h.kind <= kindFree && h.magic == blockMagic && h.reserved == 0
}

// superblockBody describes the fields after the header in block 0.
type superblockBody struct {
	nBlocks byte
	// freeMap is the raw free-block bitmap bytes, ceil(nBlocks/8) long.
	freeMap []byte
}

func decodeSuperblock(buf []byte) superblockBody {
	n := buf[4]
	mapLen := (int(n) + 7) / 8
	freeMap := make([]byte, mapLen)
	copy(freeMap, buf[5:5+mapLen])
	return superblockBody{nBlocks: n, freeMap: freeMap}
}

func (s superblockBody) encode(buf []byte) {
	buf[4] = s.nBlocks
	copy(buf[5:5+len(s.freeMap)], s.freeMap)
}

// inodeBody describes the fields after the header in an inode block.
type inodeBody struct {
	parent byte
	name   [MaxFilenameSize]byte
	size   uint32
	flags  byte
}

func decodeInode(buf []byte) inodeBody {
	var b inodeBody
	b.parent = buf[4]
	copy(b.name[:], buf[5:5+MaxFilenameSize])
	b.size = leUint32(buf[13:17])
	b.flags = buf[17]
	return b
}

func (b inodeBody) encode(buf []byte) {
	buf[4] = b.parent
	copy(buf[5:5+MaxFilenameSize], b.name[:])
	putLEUint32(buf[13:17], b.size)
	buf[17] = b.flags
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLEUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// filenameBytes converts a Go string to the fixed 8-byte, NUL-padded
// on-disk filename field. It assumes len(name) <= MaxFilenameSize.
func filenameBytes(name string) [MaxFilenameSize]byte {
	var b [MaxFilenameSize]byte
	copy(b[:], name)
	return b
}

// filenameString converts the fixed 8-byte on-disk field back to a Go
// string, stopping at the first NUL (or the full 8 bytes if none).
func filenameString(b [MaxFilenameSize]byte) string {
	n := len(b)
	for i, c := range b {
		if c == 0 {
			n = i
			break
		}
	}
	return string(b[:n])
}
