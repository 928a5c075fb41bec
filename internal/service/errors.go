package service

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Kind classifies a service error for the external surfaces.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindNotFound
	KindConflict
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	default:
		return "internal"
	}
}

// Error is the single error type returned across the service boundary.
// Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

var (
	ErrUnauthorized         = newError(KindUnauthorized, "unauthorized")
	ErrTokenRevoked         = newError(KindUnauthorized, "token has been revoked")
	ErrAuthenticationFailed = newError(KindUnauthorized, "invalid username or password")
	ErrInvalidRefreshToken  = newError(KindUnauthorized, "invalid or expired refresh token")
	ErrUserNotFound         = newError(KindNotFound, "user not found")
	ErrRoomNotFound         = newError(KindNotFound, "room not found")
	ErrMessageNotFound      = newError(KindNotFound, "message not found")
	ErrAlreadyMember        = newError(KindConflict, "user is already a member of this room")
	ErrRegistrationFailed   = newError(KindConflict, "username or email already exists")
	ErrInvalidInput         = newError(KindInvalid, "invalid input")
	ErrInternalServer       = newError(KindInternal, "internal server error")
)

// Invalidf builds a KindInvalid error with a client-facing message.
func Invalidf(format string, args ...interface{}) error {
	return newError(KindInvalid, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of err; anything that is not an *Error is internal.
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}

// PublicMessage returns the text a client may see for err.
func PublicMessage(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return ErrInternalServer.Message
}

// asServiceError passes *Error values through. Anything else is logged with
// its detail under msg and replaced by ErrInternalServer.
func asServiceError(err error, logCtx *logrus.Entry, msg string) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	logCtx.WithError(err).Error(msg)
	return ErrInternalServer
}
