// Package errs provides the unified error type used across all of dbpilot.
//
// Every subsystem (session, database drivers, filestore, server, …) wraps its
// native errors into *errs.Error before returning them to callers. Callers
// use the Is* predicates to handle errors without importing driver-specific
// packages.
//
// Usage:
//
//	// In a driver, wrap native errors:
//	return errs.Wrap(errs.ErrKindDatabase, "query failed", pgErr)
//
//	// In a handler, check the error kind:
//	if errs.IsNotConnected(err) {
//	    http.Error(w, "connect first", http.StatusConflict)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindDatabase                 // any server round-trip failure
	ErrKindNotConnected             // operation needs a session and none is active
	ErrKindAlreadyConnected         // connect attempted while a session exists
	ErrKindInvalidConfig            // bad identifier, PK-less write, malformed config
	ErrKindNotFound                 // missing object, table or profile
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindStorage                  // export / object storage failure
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindDatabase:
		return "database"
	case ErrKindNotConnected:
		return "not_connected"
	case ErrKindAlreadyConnected:
		return "already_connected"
	case ErrKindInvalidConfig:
		return "invalid_config"
	case ErrKindNotFound:
		return "not_found"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all dbpilot subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// NotConnected is returned by every session-bound operation issued while no
// connection is active.
func NotConnected() *Error {
	return New(ErrKindNotConnected, "not connected")
}

// AlreadyConnected is returned by connect while a connection exists.
func AlreadyConnected() *Error {
	return New(ErrKindAlreadyConnected, "already connected")
}

// InvalidConfig builds an ErrKindInvalidConfig error.
func InvalidConfig(format string, args ...any) *Error {
	return Newf(ErrKindInvalidConfig, format, args...)
}

// --- Predicates ---

// IsDatabase reports whether err is a server round-trip failure.
func IsDatabase(err error) bool {
	return KindOf(err) == ErrKindDatabase
}

// IsNotConnected reports whether err was caused by a missing session.
func IsNotConnected(err error) bool {
	return KindOf(err) == ErrKindNotConnected
}

// IsAlreadyConnected reports whether err was caused by a second connect.
func IsAlreadyConnected(err error) bool {
	return KindOf(err) == ErrKindAlreadyConnected
}

// IsInvalidConfig reports whether err was caused by bad input or configuration.
func IsInvalidConfig(err error) bool {
	return KindOf(err) == ErrKindInvalidConfig
}

// IsNotFound reports whether err represents a missing object or profile.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsStorage reports whether err is an object storage failure.
func IsStorage(err error) bool {
	return KindOf(err) == ErrKindStorage
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
