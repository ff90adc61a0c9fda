package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// The chain fails into exactly four client-visible categories. Every stage
// short-circuits on the first failure; internal causes (user missing vs
// membership missing) are coalesced so the response never leaks which
// lookup failed.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenRevoked = errors.New("token has been revoked")
)

type DenialReason string

const (
	DenialUnauthenticated DenialReason = "unauthenticated"
	DenialForbidden       DenialReason = "forbidden"
	DenialBadRequest      DenialReason = "bad_request"
	DenialIntegrity       DenialReason = "integrity"
)

// Denial is an authorization failure carrying the HTTP translation and a
// client-safe message.
type Denial struct {
	Reason  DenialReason
	Message string
}

func (d *Denial) Error() string { return d.Message }

func (d *Denial) StatusCode() int {
	switch d.Reason {
	case DenialBadRequest:
		return http.StatusBadRequest
	case DenialUnauthenticated:
		return http.StatusUnauthorized
	case DenialForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func Unauthenticated(msg string) *Denial {
	return &Denial{Reason: DenialUnauthenticated, Message: msg}
}

func Forbidden(msg string) *Denial {
	return &Denial{Reason: DenialForbidden, Message: msg}
}

func BadRequest(msg string) *Denial {
	return &Denial{Reason: DenialBadRequest, Message: msg}
}

// Integrity marks a data-integrity violation (a user or membership pointing
// at a role that does not exist). Surfaced as a server error, never blamed
// on the client; the HTTP layer masks the message.
func Integrity(msg string) *Denial {
	return &Denial{Reason: DenialIntegrity, Message: msg}
}

func MissingPermissions(perms ...Permission) *Denial {
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	return Forbidden(fmt.Sprintf("missing required permissions: %s", strings.Join(names, ", ")))
}

// AsDenial unwraps err into a *Denial when it is one.
func AsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
