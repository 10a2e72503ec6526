package terrno_test

import (
	"errors"
	"os"
	"syscall"
	"testing"

	"github.com/tinyfs/tinyfs/internal/terrno"
)

func TestIsError(t *testing.T) {
	cases := []struct {
		code terrno.Code
		want bool
	}{
		{terrno.EOF, true},
		{terrno.TxtBusy, true},
		{terrno.Unknown, true},
		{0, false},
		{1, false},
	}
	for _, c := range cases {
		if got := c.code.IsError(); got != c.want {
			t.Errorf("Code(%d).IsError() = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestTranslateHostErrorErrno(t *testing.T) {
	err := terrno.TranslateHostError(syscall.ENOSPC)
	var tfsErr *terrno.Error
	if !errors.As(err, &tfsErr) {
		t.Fatalf("expected *terrno.Error, got %T", err)
	}
	if tfsErr.Code != terrno.NoMemory {
		t.Errorf("code = %v, want NoMemory", tfsErr.Code)
	}
}

func TestTranslateHostErrorPathError(t *testing.T) {
	// ENOENT has no explicit case in the original tfs_error() switch, so
	// it falls through to the default ERR_UNKNOWN, same as here.
	_, statErr := os.Stat("/does/not/exist/tinyfs-test")
	err := terrno.TranslateHostError(statErr)
	if !errors.Is(err, terrno.ErrUnknown) {
		t.Errorf("expected ErrUnknown for ENOENT, got %v", err)
	}
}

func TestTranslateHostErrorPassesThroughAlready(t *testing.T) {
	orig := terrno.New("openFile", terrno.NameTooLong, nil)
	err := terrno.TranslateHostError(orig)
	if err != orig {
		t.Errorf("expected passthrough of already-translated error")
	}
}

func TestErrorIsSentinel(t *testing.T) {
	err := terrno.New("writeFile", terrno.NoMemory, nil)
	if !errors.Is(err, terrno.ErrNoMemory) {
		t.Errorf("errors.Is against sentinel should match on code")
	}
	if errors.Is(err, terrno.ErrIO) {
		t.Errorf("errors.Is should not match a different code")
	}
}
