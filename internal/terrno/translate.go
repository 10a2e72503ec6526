package terrno

import (
	"errors"
	"io/fs"
	"syscall"
)

// TranslateHostError maps a host I/O error to the TinyFS taxonomy, the Go
// port of libDisk.c's tfs_error(errnum) switch.
func TranslateHostError(err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return New("", codeForErrno(errno), err)
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return New("", Invalid, err)
	case errors.Is(err, fs.ErrPermission):
		return New("", Access, err)
	case errors.Is(err, fs.ErrClosed):
		return New("", BadF, err)
	default:
		return New("", Unknown, err)
	}
}

func codeForErrno(errno syscall.Errno) Code {
	switch errno {
	case syscall.EACCES:
		return Access
	case syscall.EAGAIN:
		return Again
	case syscall.EBADF:
		return BadF
	case syscall.EDQUOT:
		return DQuota
	case syscall.EFAULT:
		return Fault
	case syscall.EINTR:
		return Interrupt
	case syscall.EINVAL:
		return Invalid
	case syscall.EIO:
		return IO
	case syscall.EISDIR:
		return IsDir
	case syscall.ELOOP:
		return Loop
	case syscall.EMFILE:
		return MFiles
	case syscall.ENAMETOOLONG:
		return NameTooLong
	case syscall.ENOMEM, syscall.ENOSPC:
		return NoMemory
	case syscall.EOVERFLOW:
		return Overflow
	case syscall.EPERM:
		return Permit
	case syscall.EROFS:
		return RdOnlyFS
	case syscall.ESPIPE:
		return SeekPipe
	case syscall.ETXTBSY:
		return TxtBusy
	default:
		return Unknown
	}
}
