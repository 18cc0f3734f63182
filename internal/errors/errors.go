package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure independent of transport.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindPermissionDenied
	KindUnauthenticated
	KindInvalid
	KindRateLimited
	KindUpstream
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInvalid:
		return "invalid"
	case KindRateLimited:
		return "rate_limited"
	case KindUpstream:
		return "upstream_failure"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a domain error carrying a Kind and a user-facing message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, msg string) error { return &Error{Kind: k, Msg: msg} }

func NotFound(msg string) error         { return newErr(KindNotFound, msg) }
func PermissionDenied(msg string) error { return newErr(KindPermissionDenied, msg) }
func Invalid(msg string) error          { return newErr(KindInvalid, msg) }
func RateLimited(msg string) error      { return newErr(KindRateLimited, msg) }
func Conflict(msg string) error         { return newErr(KindConflict, msg) }

// Upstream wraps a failure of an external collaborator (scoring service, media host).
func Upstream(msg string, err error) error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

// Unauth is the Connection Authenticator's rejection.
func Unauth(msg string, err error) error {
	return &Error{Kind: KindUnauthenticated, Msg: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
