package services

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. The transport layer maps each kind to a status
// code in one place.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindInvalidState
	KindInsufficientBalance
	KindNegativeBalance
	KindInvalidFile
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindNegativeBalance:
		return "negative_balance"
	case KindInvalidFile:
		return "invalid_file"
	case KindDependency:
		return "dependency"
	}
	return "internal"
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind and code so sentinel values below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInvalidState        = &Error{Kind: KindInvalidState}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance}
	ErrNegativeBalance     = &Error{Kind: KindNegativeBalance}
	ErrInvalidFile         = &Error{Kind: KindInvalidFile}
	ErrDependency          = &Error{Kind: KindDependency}
)

func validation(code, msg string) error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

func notFound(code, msg string) error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

func forbidden(code, msg string) error {
	return &Error{Kind: KindForbidden, Code: code, Message: msg}
}

func invalidState(code, msg string) error {
	return &Error{Kind: KindInvalidState, Code: code, Message: msg}
}

func invalidFile(code, msg string) error {
	return &Error{Kind: KindInvalidFile, Code: code, Message: msg}
}

func insufficientBalance() error {
	return &Error{Kind: KindInsufficientBalance, Code: "INSUFFICIENT_BALANCE", Message: "balance is lower than the requested amount"}
}

func negativeBalance() error {
	return &Error{Kind: KindNegativeBalance, Code: "NEGATIVE_BALANCE", Message: "operation would leave a negative balance"}
}

// dependency wraps a store or collaborator failure. Already classified errors
// pass through unchanged.
func dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindDependency, Code: "DEPENDENCY_FAILURE", Message: op, Err: err}
}

// KindOf reports the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
