// Package faults carries the error taxonomy the service layer reports to the
// REST boundary: not found, conflict, bad request and internal.
package faults

import (
	"errors"
	"fmt"
)

type Code int

const (
	CodeInternal Code = iota
	CodeNotFound
	CodeConflict
	CodeBadRequest
)

func (c Code) String() string {
	switch c {
	case CodeNotFound:
		return "not_found"
	case CodeConflict:
		return "conflict"
	case CodeBadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// Fault is a service-level failure with a stable classification.
type Fault struct {
	Code    Code
	Message string
	cause   error
}

func (f *Fault) Error() string {
	if f.cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Code, f.Message, f.cause)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func (f *Fault) Unwrap() error { return f.cause }

func NotFound(format string, args ...any) *Fault {
	return &Fault{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Fault {
	return &Fault{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) *Fault {
	return &Fault{Code: CodeBadRequest, Message: fmt.Sprintf(format, args...)}
}

func Internal(err error, format string, args ...any) *Fault {
	return &Fault{Code: CodeInternal, Message: fmt.Sprintf(format, args...), cause: err}
}

// CodeOf classifies any error, defaulting to internal.
func CodeOf(err error) Code {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code
	}
	return CodeInternal
}
