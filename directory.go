package tinyfs

// TinyFS has exactly one, flat directory: the root. Its entries are packed
// 9-byte (name, child-block) pairs living first in the root inode block's
// data area (spec.md §3.6) and then, if more are needed, in a chain of
// extent blocks linked through each block's header `next` field. An entry
// never straddles a block boundary: each block's data area holds only as
// many whole dirEntrySize-byte slots as fit, and any leftover bytes go
// unused.

// entrySlots returns the byte offset of the entries area and the number
// of whole dirEntrySize slots that fit in a block of the given kind.
func (v *Volume) entrySlots(isInode bool) (start, count int) {
	if isInode {
		return inodeHeaderSize, inodeDataSize(v.blockSize) / dirEntrySize
	}
	return headerSize, extentDataSize(v.blockSize) / dirEntrySize
}

// dirSlot identifies one directory-entry slot on disk.
type dirSlot struct {
	block  int
	index  int
	isInode bool
}

// forEachDirSlot walks the root directory's inode+extent chain, invoking
// fn for every entry slot (occupied or tombstoned). fn returns stop=true
// to end the walk early.
func (v *Volume) forEachDirSlot(fn func(slot dirSlot, name string, child byte) (stop bool, err error)) error {
	buf := make([]byte, v.blockSize)
	blockNum := 1
	isInode := true
	for blockNum != 0 {
		if err := v.readBlock(blockNum, buf); err != nil {
			return err
		}
		hdr := decodeHeader(buf)
		start, count := v.entrySlots(isInode)
		for i := 0; i < count; i++ {
			off := start + i*dirEntrySize
			var name [MaxFilenameSize]byte
			copy(name[:], buf[off:off+MaxFilenameSize])
			child := buf[off+MaxFilenameSize]
			stop, err := fn(dirSlot{block: blockNum, index: i, isInode: isInode}, filenameString(name), child)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
		blockNum = int(hdr.next)
		isInode = false
	}
	return nil
}

// lookupDirEntry returns the inode block number for name, or found=false
// if no live entry with that name exists.
func (v *Volume) lookupDirEntry(name string) (child int, found bool, err error) {
	err = v.forEachDirSlot(func(slot dirSlot, entryName string, entryChild byte) (bool, error) {
		if entryChild != 0 && entryName == name {
			child = int(entryChild)
			found = true
			return true, nil
		}
		return false, nil
	})
	return child, found, err
}

// writeDirSlot stores (name, child) into the given slot.
func (v *Volume) writeDirSlot(slot dirSlot, name string, child byte) error {
	buf := make([]byte, v.blockSize)
	if err := v.readBlock(slot.block, buf); err != nil {
		return err
	}
	start, _ := v.entrySlots(slot.isInode)
	off := start + slot.index*dirEntrySize
	nameBytes := filenameBytes(name)
	copy(buf[off:off+MaxFilenameSize], nameBytes[:])
	buf[off+MaxFilenameSize] = child
	return v.writeBlock(slot.block, buf)
}

// insertDirEntry places (name, child) into the first tombstoned or unused
// slot in the root directory's chain, extending the chain with a fresh
// extent block if every existing slot is occupied.
func (v *Volume) insertDirEntry(name string, child int) error {
	var target *dirSlot
	lastBlock := 0
	err := v.forEachDirSlot(func(slot dirSlot, entryName string, entryChild byte) (bool, error) {
		lastBlock = slot.block
		if entryChild == 0 && target == nil {
			s := slot
			target = &s
		}
		return false, nil
	})
	if err != nil {
		return err
	}
	if target == nil {
		newBlock := v.nextFreeBlock()
		if newBlock < 0 {
			return newErr("insertDirEntry", CodeNoMemory)
		}
		buf := make([]byte, v.blockSize)
		blockHeader{kind: kindExtent, magic: blockMagic}.encode(buf)
		if err := v.writeBlock(newBlock, buf); err != nil {
			return err
		}
		v.allocBlock(newBlock)

		lastBuf := make([]byte, v.blockSize)
		if err := v.readBlock(lastBlock, lastBuf); err != nil {
			return err
		}
		hdr := decodeHeader(lastBuf)
		hdr.next = byte(newBlock)
		hdr.encode(lastBuf)
		if err := v.writeBlock(lastBlock, lastBuf); err != nil {
			return err
		}
		target = &dirSlot{block: newBlock, index: 0, isInode: false}
	}
	return v.writeDirSlot(*target, name, byte(child))
}
