package tinyfs

import "github.com/tinyfs/tinyfs/internal/terrno"

// Code is a TinyFS error code, the negative-integer taxonomy of spec.md
// §7. It is kept for callers porting tests or tooling written against
// that taxonomy; idiomatic Go callers should use errors.Is against the
// Err* sentinels below instead.
type Code = terrno.Code

// The full error taxonomy of spec.md §7.
const (
	CodeEOF         = terrno.EOF
	CodeAccess      = terrno.Access
	CodeAgain       = terrno.Again
	CodeBadF        = terrno.BadF
	CodeDQuota      = terrno.DQuota
	CodeFault       = terrno.Fault
	CodeInterrupt   = terrno.Interrupt
	CodeInvalid     = terrno.Invalid
	CodeIO          = terrno.IO
	CodeIsDir       = terrno.IsDir
	CodeLoop        = terrno.Loop
	CodeMFiles      = terrno.MFiles
	CodeNameTooLong = terrno.NameTooLong
	CodeNoMemory    = terrno.NoMemory
	CodeOverflow    = terrno.Overflow
	CodePermit      = terrno.Permit
	CodeRdOnlyFS    = terrno.RdOnlyFS
	CodeSeekPipe    = terrno.SeekPipe
	CodeTxtBusy     = terrno.TxtBusy
	CodeUnknown     = terrno.Unknown
)

// Error is a TinyFS taxonomy error. It implements error and supports
// errors.Is/errors.As against the Err* sentinels and errors.Unwrap against
// any underlying host error.
type Error = terrno.Error

// Sentinel errors, one per taxonomy code in spec.md §7.
var (
	ErrEOF         = terrno.ErrEOF
	ErrAccess      = terrno.ErrAccess
	ErrAgain       = terrno.ErrAgain
	ErrBadF        = terrno.ErrBadF
	ErrDQuota      = terrno.ErrDQuota
	ErrFault       = terrno.ErrFault
	ErrInterrupt   = terrno.ErrInterrupt
	ErrInvalid     = terrno.ErrInvalid
	ErrIO          = terrno.ErrIO
	ErrIsDir       = terrno.ErrIsDir
	ErrLoop        = terrno.ErrLoop
	ErrMFiles      = terrno.ErrMFiles
	ErrNameTooLong = terrno.ErrNameTooLong
	ErrNoMemory    = terrno.ErrNoMemory
	ErrOverflow    = terrno.ErrOverflow
	ErrPermit      = terrno.ErrPermit
	ErrRdOnlyFS    = terrno.ErrRdOnlyFS
	ErrSeekPipe    = terrno.ErrSeekPipe
	ErrTxtBusy     = terrno.ErrTxtBusy
	ErrUnknown     = terrno.ErrUnknown
)

// CodeOf extracts the taxonomy Code from err, or CodeUnknown if err is not
// a *Error. A nil err yields 0, the success code.
func CodeOf(err error) Code {
	if err == nil {
		return 0
	}
	if tfsErr, ok := err.(*Error); ok {
		return tfsErr.Code
	}
	return terrno.Unknown
}

func newErr(op string, code Code) error {
	return terrno.New(op, code, nil)
}
