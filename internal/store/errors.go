package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a keyed row does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeTransactionMisuse indicates a write was attempted on a read-only
	// transaction. This is a programming error and is never retried.
	ErrCodeTransactionMisuse ErrorCode = "TX_MISUSE"

	// ErrCodeReferentialIntegrity indicates a row references a thread that
	// does not exist.
	ErrCodeReferentialIntegrity ErrorCode = "REFERENTIAL_INTEGRITY"
)

// Error is returned by store operations for conditions callers branch on.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewMisuseError creates a TX_MISUSE error for op.
func NewMisuseError(op string) *Error {
	return &Error{
		Code:    ErrCodeTransactionMisuse,
		Op:      op,
		Message: "write attempted on read-only transaction",
	}
}

// NewNotFoundError creates a NOT_FOUND error for op.
func NewNotFoundError(op, message string) *Error {
	return &Error{Code: ErrCodeNotFound, Op: op, Message: message}
}

// NewReferentialIntegrityError creates a REFERENTIAL_INTEGRITY error for a
// missing thread.
func NewReferentialIntegrityError(op, threadID string) *Error {
	return &Error{
		Code:    ErrCodeReferentialIntegrity,
		Op:      op,
		Message: fmt.Sprintf("thread %q does not exist", threadID),
	}
}

// IsNotFound reports whether err is a NOT_FOUND store error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsTransactionMisuse reports whether err is a TX_MISUSE store error.
func IsTransactionMisuse(err error) bool {
	return hasCode(err, ErrCodeTransactionMisuse)
}

// IsReferentialIntegrity reports whether err is a REFERENTIAL_INTEGRITY store error.
func IsReferentialIntegrity(err error) bool {
	return hasCode(err, ErrCodeReferentialIntegrity)
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
