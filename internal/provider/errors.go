package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed catalog request.
type Kind int

const (
	// KindTransient covers connection failures, timeouts and unexpected statuses.
	KindTransient Kind = iota + 1
	// KindGone means the entity no longer exists upstream.
	KindGone
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindGone:
		return "gone"
	default:
		return "unknown"
	}
}

var (
	// ErrTransient matches every transient RequestError via errors.Is.
	ErrTransient = errors.New("transient catalog failure")
	// ErrGone matches every gone RequestError via errors.Is.
	ErrGone = errors.New("entity no longer exists upstream")
)

// RequestError is a failed catalog request.
type RequestError struct {
	// Kind tells the scheduler how to react.
	Kind Kind
	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int
	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s catalog failure (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s catalog failure: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the ErrTransient and ErrGone sentinels.
func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrTransient:
		return e.Kind == KindTransient
	case ErrGone:
		return e.Kind == KindGone
	default:
		return false
	}
}

// Transient wraps err as a transient failure.
func Transient(err error) error {
	return &RequestError{
		Kind: KindTransient,
		Err:  err,
	}
}

// Gone wraps err as a gone failure.
func Gone(err error) error {
	return &RequestError{
		Kind:       KindGone,
		StatusCode: http.StatusNotFound,
		Err:        err,
	}
}

// FromStatus classifies a non-2xx HTTP status. 404 and 410 are gone, the rest transient.
func FromStatus(statusCode int, err error) error {
	kind := KindTransient
	if statusCode == http.StatusNotFound || statusCode == http.StatusGone {
		kind = KindGone
	}

	return &RequestError{
		Kind:       kind,
		StatusCode: statusCode,
		Err:        err,
	}
}

// KindOf classifies any error. Unknown errors are transient.
func KindOf(err error) Kind {
	var requestErr *RequestError
	if errors.As(err, &requestErr) {
		return requestErr.Kind
	}

	return KindTransient
}
