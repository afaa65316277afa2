package wmsapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed API call.
type Kind int

const (
	// KindServer covers every failure that is neither 401 nor 403, including transport errors.
	KindServer Kind = iota
	// KindUnauthorized means the token is missing, expired or revoked.
	KindUnauthorized
	// KindForbidden means the role lacks permission for the resource.
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "server_error"
	}
}

// Sentinels matched by *Error through errors.Is.
var (
	ErrUnauthorized = errors.New("wmsapi: unauthorized")
	ErrForbidden    = errors.New("wmsapi: forbidden")
	ErrServer       = errors.New("wmsapi: server error")
)

// Error describes a failed call against the WMS API.
type Error struct {
	Op      string
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("wmsapi: %s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("wmsapi: %s: status %d: %s", e.Op, e.Status, e.Message)
	default:
		return fmt.Sprintf("wmsapi: %s: status %d", e.Op, e.Status)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrForbidden:
		return e.Kind == KindForbidden
	case ErrServer:
		return e.Kind == KindServer
	}
	return false
}

func classify(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	default:
		return KindServer
	}
}

// KindOf reports the failure kind of err; non-API errors are KindServer.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindServer
}

// ServerMessage returns the text body the server sent with a failure, or fallback.
func ServerMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
