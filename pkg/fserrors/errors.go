// Package fserrors defines the error taxonomy shared by every file server component.
//
// Core components (access control, storage, transfers, privilege handling) return
// *Error values carrying a Code. Protocol layers translate the Code into their own
// status representation (gRPC status codes for the RPC gateway, exit codes for CLIs).
package fserrors

import (
	"errors"
	"fmt"
)

// Error represents a domain error from a file server operation.
type Error struct {
	// Code is the error category
	Code Code

	// Message is a human-readable error description
	Message string

	// Path is the virtual or filesystem path related to the error (if applicable)
	Path string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Code.String() + ": " + e.Message
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code.
//
// This lets callers match categories with errors.Is(err, fserrors.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Path == "" && t.Err == nil && t.Code == e.Code
}

// Code represents the category of a file server error.
type Code int

const (
	// InvalidArgument indicates a malformed request: empty or malformed virtual
	// path, a chunk whose path differs from the first chunk, or a transfer that
	// never delivered its final chunk.
	InvalidArgument Code = iota + 1

	// InvalidPath indicates a traversal attempt or a node of the wrong type for
	// the operation (listing a file, reading a directory).
	InvalidPath

	// PermissionDenied indicates an origin outside the allowlist, an unknown
	// directory root, a write on a read-only root, or a failed containment check.
	PermissionDenied

	// NotFound indicates stat or delete on a missing path.
	NotFound

	// Internal indicates an unexpected I/O failure.
	Internal

	// Config indicates a fatal startup error. Never returned per call.
	Config
)

// String returns the canonical name of the code.
func (c Code) String() string {
	switch c {
	case InvalidArgument:
		return "invalid argument"
	case InvalidPath:
		return "invalid path"
	case PermissionDenied:
		return "permission denied"
	case NotFound:
		return "not found"
	case Internal:
		return "internal error"
	case Config:
		return "configuration error"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Sentinels for errors.Is matching by category.
var (
	ErrInvalidArgument  = &Error{Code: InvalidArgument}
	ErrInvalidPath      = &Error{Code: InvalidPath}
	ErrPermissionDenied = &Error{Code: PermissionDenied}
	ErrNotFound         = &Error{Code: NotFound}
	ErrInternal         = &Error{Code: Internal}
	ErrConfig           = &Error{Code: Config}
)

// New creates an *Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with a formatted message around an underlying cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithPath returns a copy of e carrying the given path.
func (e *Error) WithPath(path string) *Error {
	cp := *e
	cp.Path = path
	return &cp
}

// CodeOf extracts the Code from err.
//
// Errors that are not (and do not wrap) an *Error are reported as Internal,
// since they originate from unexpected infrastructure failures.
func CodeOf(err error) Code {
	if err == nil {
		return 0
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return Internal
}
