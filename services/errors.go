package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/duckieducksrgood/winchpoint/entity"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	}
	return "internal"
}

// Error is a caller-facing failure. Anything that is not an *Error is internal.
type Error struct {
	Kind   Kind
	Msg    string
	Fields []string
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s", e.Msg, strings.Join(e.Fields, ", "))
	}
	return e.Msg
}

func Validation(msg string, fields ...string) error {
	return &Error{Kind: KindValidation, Msg: msg, Fields: fields}
}
func NotFound(what string) error {
	return &Error{Kind: KindNotFound, Msg: what + " not found"}
}
func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &Error{Kind: KindForbidden, Msg: msg} }
func Conflict(msg string) error     { return &Error{Kind: KindConflict, Msg: msg} }

// KindOf reports the kind of err, zero for internal errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsKind(err error, k Kind) bool { return KindOf(err) == k }

// Actor is who is calling, as resolved from the access token.
type Actor struct {
	UserID uint
	Role   entity.Role
}

func (a Actor) IsAdmin() bool { return a.Role.IsAdmin() }
