package crawler

import (
	"context"
	"errors"
	"net"
)

// Fetch failure kinds, used as metric labels.
const (
	KindTimeout    = "timeout"
	KindConnection = "connection"
	KindStatus     = "status"
	KindDecode     = "decode"
	KindRequest    = "request"
	KindOther      = "other"
)

// FetchError is returned when a category cannot be fetched: the request failed,
// the endpoint answered with a non-success status, or the payload was malformed.
type FetchError struct {
	Kind       string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ErrorKind returns the FetchError kind of err, or KindOther.
func ErrorKind(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindOther
}

func classifyTransportError(err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	return &FetchError{Kind: KindConnection, Err: err}
}
