package tinyfs

// File is a handle to an open TinyFS file (spec.md §3.7). It is not safe
// for concurrent use by multiple goroutines.
type File struct {
	vol *Volume
	fd  int
}

// OpenFile opens name in the root directory, creating it (empty, with
// read and write permission) if it does not already exist (spec.md §4.7).
func (v *Volume) OpenFile(name string) (*File, error) {
	if len(name) == 0 || len(name) > MaxFilenameSize {
		return nil, newErr("open", CodeNameTooLong)
	}

	child, found, err := v.lookupDirEntry(name)
	if err != nil {
		return nil, err
	}

	var inode inodeBody
	if found {
		buf := make([]byte, v.blockSize)
		if err := v.readBlock(child, buf); err != nil {
			return nil, err
		}
		hdr := decodeHeader(buf)
		if !hdr.wellFormed() || hdr.kind != kindInode {
			return nil, newErr("open", CodeInvalid)
		}
		inode = decodeInode(buf)
	} else {
		newBlock := v.nextFreeBlock()
		if newBlock < 0 {
			return nil, newErr("open", CodeNoMemory)
		}
		inode = inodeBody{parent: 1, name: filenameBytes(name), size: 0, flags: FlagRead | FlagWrite}
		buf := make([]byte, v.blockSize)
		blockHeader{kind: kindInode, magic: blockMagic}.encode(buf)
		inode.encode(buf)
		if err := v.writeBlock(newBlock, buf); err != nil {
			return nil, err
		}
		v.allocBlock(newBlock)
		if err := v.insertDirEntry(name, newBlock); err != nil {
			v.freeBlock(newBlock)
			return nil, err
		}
		child = newBlock
	}

	fd := v.allocFD(&fileState{
		inode:    child,
		parent:   1,
		name:     name,
		flags:    inode.flags,
		ptr:      0,
		size:     int(inode.size),
		bufBlock: -1,
	})
	v.log.WithField("file", name).Debug("tinyfs: opened file")
	return &File{vol: v, fd: fd}, nil
}

// allocFD installs st into the open-file table, reusing the last-closed
// slot if one is cached, and returns its descriptor.
func (v *Volume) allocFD(st *fileState) int {
	if v.nextFDHint >= 0 && v.nextFDHint < v.openFiles.Len() {
		fd := v.nextFDHint
		v.openFiles.Set(fd, st)
		v.nextFDHint = -1
		return fd
	}
	for i := 0; i < v.openFiles.Len(); i++ {
		if v.openFiles.Get(i) == nil {
			v.openFiles.Set(i, st)
			return i
		}
	}
	return v.openFiles.Append(st)
}

func (v *Volume) fileAt(fd int) (*fileState, error) {
	if fd < 0 || fd >= v.openFiles.Len() {
		return nil, newErr("fd", CodeBadF)
	}
	st := v.openFiles.Get(fd)
	if st == nil {
		return nil, newErr("fd", CodeBadF)
	}
	return st, nil
}

// Close releases f's file-descriptor slot. It does not flush anything:
// every Write call is already durable on return (spec.md §4.12).
func (f *File) Close() error {
	st, err := f.vol.fileAt(f.fd)
	if err != nil {
		return err
	}
	f.vol.openFiles.Set(f.fd, nil)
	f.vol.nextFDHint = f.fd
	f.vol.log.WithField("file", st.name).Debug("tinyfs: closed file")
	return nil
}

// chainBlocks returns the ordered block numbers holding f's data: the
// inode block first, then each extent in chain order (spec.md §4.10).
func (v *Volume) chainBlocks(inode int) ([]int, error) {
	blocks := []int{inode}
	buf := make([]byte, v.blockSize)
	if err := v.readBlock(inode, buf); err != nil {
		return nil, err
	}
	next := int(decodeHeader(buf).next)
	for next != 0 {
		blocks = append(blocks, next)
		if err := v.readBlock(next, buf); err != nil {
			return nil, err
		}
		next = int(decodeHeader(buf).next)
	}
	return blocks, nil
}

// freeBlocks releases every extent block belonging to inode (but not the
// inode block itself) and clears the inode block's chain pointer
// (spec.md §4.13).
func (v *Volume) freeBlocks(inode int) error {
	blocks, err := v.chainBlocks(inode)
	if err != nil {
		return err
	}
	for _, b := range blocks[1:] {
		v.freeBlock(b)
	}
	buf := make([]byte, v.blockSize)
	if err := v.readBlock(inode, buf); err != nil {
		return err
	}
	hdr := decodeHeader(buf)
	hdr.next = 0
	hdr.encode(buf)
	return v.writeBlock(inode, buf)
}

// Write replaces f's entire contents with data and resets the seek
// pointer to the start (spec.md §4.12's total-rewrite semantics: TinyFS
// has no partial/in-place update, every Write is "truncate then append").
func (f *File) Write(data []byte) (int, error) {
	st, err := f.vol.fileAt(f.fd)
	if err != nil {
		return 0, err
	}
	if st.flags&FlagWrite == 0 {
		return 0, newErr("write", CodeAccess)
	}
	v := f.vol

	existing, err := v.chainBlocks(st.inode)
	if err != nil {
		return 0, err
	}
	extentCap := extentDataSize(v.blockSize)
	needed := 0
	if extra := len(data) - inodeDataSize(v.blockSize); extra > 0 {
		needed = (extra + extentCap - 1) / extentCap
	}
	available := v.freeMap.PopCount(v.nBlocks) + (len(existing) - 1)
	if needed > available {
		return 0, newErr("write", CodeNoMemory)
	}

	if err := v.freeBlocks(st.inode); err != nil {
		return 0, err
	}

	remaining := data
	inodeBuf := make([]byte, v.blockSize)
	if err := v.readBlock(st.inode, inodeBuf); err != nil {
		return 0, err
	}
	first := inodeDataSize(v.blockSize)
	if first > len(remaining) {
		first = len(remaining)
	}
	for i := inodeHeaderSize; i < v.blockSize; i++ {
		inodeBuf[i] = 0
	}
	copy(inodeBuf[inodeHeaderSize:inodeHeaderSize+first], remaining[:first])
	remaining = remaining[first:]

	prevBlock := st.inode
	for len(remaining) > 0 {
		newBlock := v.nextFreeBlock()
		if newBlock < 0 {
			return len(data) - len(remaining), newErr("write", CodeNoMemory)
		}
		chunk := remaining
		if len(chunk) > extentCap {
			chunk = chunk[:extentCap]
		}
		extBuf := make([]byte, v.blockSize)
		blockHeader{kind: kindExtent, magic: blockMagic}.encode(extBuf)
		copy(extBuf[headerSize:headerSize+len(chunk)], chunk)
		if err := v.writeBlock(newBlock, extBuf); err != nil {
			return len(data) - len(remaining), err
		}
		v.allocBlock(newBlock)

		if prevBlock == st.inode {
			hdr := decodeHeader(inodeBuf)
			hdr.next = byte(newBlock)
			hdr.encode(inodeBuf)
		} else {
			prevBuf := make([]byte, v.blockSize)
			if err := v.readBlock(prevBlock, prevBuf); err != nil {
				return len(data) - len(remaining), err
			}
			hdr := decodeHeader(prevBuf)
			hdr.next = byte(newBlock)
			hdr.encode(prevBuf)
			if err := v.writeBlock(prevBlock, prevBuf); err != nil {
				return len(data) - len(remaining), err
			}
		}
		prevBlock = newBlock
		remaining = remaining[len(chunk):]
	}

	inode := decodeInode(inodeBuf)
	inode.size = uint32(len(data))
	inode.encode(inodeBuf)
	if err := v.writeBlock(st.inode, inodeBuf); err != nil {
		return 0, err
	}

	st.size = len(data)
	st.ptr = 0
	st.bufBlock = -1
	v.log.WithField("file", st.name).WithField("bytes", len(data)).Debug("tinyfs: wrote file")
	return len(data), nil
}

// byteLocation maps a file offset to the block holding it and the offset
// within that block's data area (spec.md §4.10).
func (v *Volume) byteLocation(inode int, off int) (block int, blockOff int, err error) {
	first := inodeDataSize(v.blockSize)
	if off < first {
		return inode, inodeHeaderSize + off, nil
	}
	off -= first
	extentCap := extentDataSize(v.blockSize)
	blocks, err := v.chainBlocks(inode)
	if err != nil {
		return 0, 0, err
	}
	idx := 1 + off/extentCap
	if idx >= len(blocks) {
		return 0, 0, newErr("seek", CodeFault)
	}
	return blocks[idx], headerSize + off%extentCap, nil
}

// ReadByte reads and returns the byte at the current seek pointer and
// advances it by one. It returns ErrFault once the pointer reaches the
// end of the file, matching the original tfs_readByte (spec.md §4.11).
func (f *File) ReadByte() (byte, error) {
	st, err := f.vol.fileAt(f.fd)
	if err != nil {
		return 0, err
	}
	if st.flags&FlagRead == 0 {
		return 0, newErr("read", CodePermit)
	}
	if st.ptr >= st.size {
		return 0, newErr("read", CodeFault)
	}
	v := f.vol
	block, off, err := v.byteLocation(st.inode, st.ptr)
	if err != nil {
		return 0, err
	}
	if st.bufBlock != block {
		if st.buf == nil {
			st.buf = make([]byte, v.blockSize)
		}
		if err := v.readBlock(block, st.buf); err != nil {
			return 0, err
		}
		st.bufBlock = block
	}
	b := st.buf[off]
	st.ptr++
	return b, nil
}

// Read fills p with up to len(p) bytes starting at the seek pointer,
// advancing it by the number of bytes read, and returns that count. It
// returns a nil error short of len(p) only at end of file.
func (f *File) Read(p []byte) (int, error) {
	for i := range p {
		b, err := f.ReadByte()
		if err != nil {
			if CodeOf(err) == CodeFault {
				return i, nil
			}
			return i, err
		}
		p[i] = b
	}
	return len(p), nil
}

// Seek moves f's read pointer to offset, which must be within [0, size]
// (spec.md §4.16).
func (f *File) Seek(offset int) error {
	st, err := f.vol.fileAt(f.fd)
	if err != nil {
		return err
	}
	if offset < 0 || offset > st.size {
		return newErr("seek", CodeInvalid)
	}
	st.ptr = offset
	return nil
}

// Delete frees every block belonging to f's file, including the inode
// block itself, and closes f. It does NOT remove the root directory's
// entry for the file: the entry is left pointing at a now-free block
// number, a deliberately preserved quirk of the format this port is
// based on. A subsequent OpenFile of the same name will read back
// whatever now occupies that block number. The stale entry keeps its
// non-zero child byte, so insertDirEntry never treats its slot as free
// and never overwrites it.
func (f *File) Delete() error {
	st, err := f.vol.fileAt(f.fd)
	if err != nil {
		return err
	}
	if st.flags&FlagIsDir != 0 {
		return newErr("delete", CodeIsDir)
	}
	if st.flags&FlagWrite == 0 {
		return newErr("delete", CodeAccess)
	}
	v := f.vol
	if err := v.freeBlocks(st.inode); err != nil {
		return err
	}
	v.freeBlock(st.inode)
	v.log.WithField("file", st.name).Debug("tinyfs: deleted file")
	v.openFiles.Set(f.fd, nil)
	v.nextFDHint = f.fd
	return nil
}
