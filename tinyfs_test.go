package tinyfs_test

import (
	"path/filepath"
	"testing"

	"github.com/tinyfs/tinyfs"
)

func mustMount(t *testing.T, nBlocks int) (*tinyfs.Volume, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disk.img")
	if err := tinyfs.Mkfs(path, nBlocks*tinyfs.DefaultBlockSize); err != nil {
		t.Fatalf("Mkfs() = %v", err)
	}
	vol, err := tinyfs.Mount(path)
	if err != nil {
		t.Fatalf("Mount() = %v", err)
	}
	t.Cleanup(func() {
		_ = vol.Unmount()
	})
	return vol, path
}

func TestMountAfterMkfsSucceeds(t *testing.T) {
	mustMount(t, 10)
}

func TestDoubleMountFailsWithTxtBusy(t *testing.T) {
	_, path := mustMount(t, 10)
	_, err := tinyfs.Mount(path)
	if tinyfs.CodeOf(err) != tinyfs.CodeTxtBusy {
		t.Fatalf("second Mount() code = %v, want CodeTxtBusy", tinyfs.CodeOf(err))
	}
}

func TestMountAgainAfterUnmount(t *testing.T) {
	vol, path := mustMount(t, 10)
	if err := vol.Unmount(); err != nil {
		t.Fatalf("Unmount() = %v", err)
	}
	vol2, err := tinyfs.Mount(path)
	if err != nil {
		t.Fatalf("second Mount() = %v", err)
	}
	_ = vol2.Unmount()
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	vol, _ := mustMount(t, 10)
	f, err := vol.OpenFile("greeting")
	if err != nil {
		t.Fatalf("OpenFile() = %v", err)
	}
	defer f.Close()

	want := []byte("hello, tinyfs")
	if n, err := f.Write(want); err != nil || n != len(want) {
		t.Fatalf("Write() = %d, %v, want %d, nil", n, err, len(want))
	}

	if err := f.Seek(0); err != nil {
		t.Fatalf("Seek() = %v", err)
	}
	got := make([]byte, len(want))
	if n, err := f.Read(got); err != nil || n != len(want) {
		t.Fatalf("Read() = %d, %v, want %d, nil", n, err, len(want))
	}
	if string(got) != string(want) {
		t.Fatalf("Read() = %q, want %q", got, want)
	}
}

func TestReadPastEndOfFileReturnsFault(t *testing.T) {
	vol, _ := mustMount(t, 10)
	f, err := vol.OpenFile("empty")
	if err != nil {
		t.Fatalf("OpenFile() = %v", err)
	}
	defer f.Close()

	if _, err := f.ReadByte(); tinyfs.CodeOf(err) != tinyfs.CodeFault {
		t.Fatalf("ReadByte() on empty file code = %v, want CodeFault", tinyfs.CodeOf(err))
	}
}

func TestSeekPastEndOfFileIsInvalid(t *testing.T) {
	vol, _ := mustMount(t, 10)
	f, err := vol.OpenFile("f")
	if err != nil {
		t.Fatalf("OpenFile() = %v", err)
	}
	defer f.Close()
	f.Write([]byte("abc"))

	if err := f.Seek(10); tinyfs.CodeOf(err) != tinyfs.CodeInvalid {
		t.Fatalf("Seek(10) code = %v, want CodeInvalid", tinyfs.CodeOf(err))
	}
}

func TestOpenFileNameTooLong(t *testing.T) {
	vol, _ := mustMount(t, 10)
	_, err := vol.OpenFile("waytoolongname")
	if tinyfs.CodeOf(err) != tinyfs.CodeNameTooLong {
		t.Fatalf("OpenFile() code = %v, want CodeNameTooLong", tinyfs.CodeOf(err))
	}
}

func TestReopenExistingFileSeesPriorContents(t *testing.T) {
	vol, _ := mustMount(t, 10)
	f1, err := vol.OpenFile("dup")
	if err != nil {
		t.Fatalf("OpenFile() = %v", err)
	}
	f1.Write([]byte("persisted"))
	f1.Close()

	f2, err := vol.OpenFile("dup")
	if err != nil {
		t.Fatalf("second OpenFile() = %v", err)
	}
	defer f2.Close()
	got := make([]byte, len("persisted"))
	if _, err := f2.Read(got); err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if string(got) != "persisted" {
		t.Fatalf("Read() = %q, want %q", got, "persisted")
	}
}

func TestWriteSpanningMultipleExtents(t *testing.T) {
	vol, _ := mustMount(t, 20)
	f, err := vol.OpenFile("big")
	if err != nil {
		t.Fatalf("OpenFile() = %v", err)
	}
	defer f.Close()

	want := make([]byte, 3*tinyfs.DefaultBlockSize)
	for i := range want {
		want[i] = byte(i % 251)
	}
	if n, err := f.Write(want); err != nil || n != len(want) {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	f.Seek(0)
	got := make([]byte, len(want))
	if _, err := f.Read(got); err != nil {
		t.Fatalf("Read() = %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDeleteLeavesDirectoryEntryDangling(t *testing.T) {
	vol, _ := mustMount(t, 10)
	f, err := vol.OpenFile("ghost")
	if err != nil {
		t.Fatalf("OpenFile() = %v", err)
	}
	f.Write([]byte("boo"))
	if err := f.Delete(); err != nil {
		t.Fatalf("Delete() = %v", err)
	}

	if _, err := vol.OpenFile("reuse"); err != nil {
		t.Fatalf("OpenFile() after delete = %v", err)
	}

	if _, err := vol.OpenFile("ghost"); err != nil {
		t.Fatalf("reopening a deleted name must not itself fail: %v", err)
	}
}

func TestWriteOverwritesShrinksFile(t *testing.T) {
	vol, _ := mustMount(t, 10)
	f, err := vol.OpenFile("shrink")
	if err != nil {
		t.Fatalf("OpenFile() = %v", err)
	}
	defer f.Close()

	f.Write([]byte("a long first write"))
	if _, err := f.Write([]byte("short")); err != nil {
		t.Fatalf("second Write() = %v", err)
	}
	f.Seek(0)
	got := make([]byte, 5)
	if _, err := f.Read(got); err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if string(got) != "short" {
		t.Fatalf("Read() = %q, want %q", got, "short")
	}
	if _, err := f.ReadByte(); tinyfs.CodeOf(err) != tinyfs.CodeFault {
		t.Fatalf("ReadByte() past shrunk size code = %v, want CodeFault", tinyfs.CodeOf(err))
	}
}

func TestUnmountRemountPreservesFiles(t *testing.T) {
	vol, path := mustMount(t, 10)
	f, err := vol.OpenFile("survivor")
	if err != nil {
		t.Fatalf("OpenFile() = %v", err)
	}
	if _, err := f.Write([]byte("still here")); err != nil {
		t.Fatalf("Write() = %v", err)
	}
	f.Close()
	if err := vol.Unmount(); err != nil {
		t.Fatalf("Unmount() = %v", err)
	}

	vol2, err := tinyfs.Mount(path)
	if err != nil {
		t.Fatalf("remount Mount() = %v", err)
	}
	defer vol2.Unmount()

	f2, err := vol2.OpenFile("survivor")
	if err != nil {
		t.Fatalf("OpenFile() after remount = %v", err)
	}
	defer f2.Close()
	got := make([]byte, len("still here"))
	if _, err := f2.Read(got); err != nil {
		t.Fatalf("Read() after remount = %v", err)
	}
	if string(got) != "still here" {
		t.Fatalf("Read() after remount = %q, want %q", got, "still here")
	}
}

func TestWriteNoMemoryLeavesFileUnchanged(t *testing.T) {
	vol, _ := mustMount(t, 4)
	f, err := vol.OpenFile("orig")
	if err != nil {
		t.Fatalf("OpenFile() = %v", err)
	}
	defer f.Close()

	original := []byte("kept intact")
	if _, err := f.Write(original); err != nil {
		t.Fatalf("Write() = %v", err)
	}

	huge := make([]byte, 50*tinyfs.DefaultBlockSize)
	if _, err := f.Write(huge); tinyfs.CodeOf(err) != tinyfs.CodeNoMemory {
		t.Fatalf("oversized Write() code = %v, want CodeNoMemory", tinyfs.CodeOf(err))
	}

	if err := f.Seek(0); err != nil {
		t.Fatalf("Seek() = %v", err)
	}
	got := make([]byte, len(original))
	if _, err := f.Read(got); err != nil {
		t.Fatalf("Read() after failed write = %v", err)
	}
	if string(got) != string(original) {
		t.Fatalf("Read() after failed write = %q, want %q, original data must survive", got, original)
	}
}

func TestDeleteRegularFileSucceeds(t *testing.T) {
	vol, _ := mustMount(t, 10)
	f, err := vol.OpenFile("plain")
	if err != nil {
		t.Fatalf("OpenFile() = %v", err)
	}
	defer f.Close()
	if err := f.Delete(); err != nil {
		t.Fatalf("Delete() on a regular file = %v", err)
	}
}
