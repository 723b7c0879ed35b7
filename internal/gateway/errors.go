package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a failed operation. The engine decides how to react
// (rollback, clear the session, offer a retry) from the kind alone.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindAuthExpired
	KindServer
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindAuthExpired:
		return "auth expired"
	case KindServer:
		return "server"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Failure is the error type returned by every gateway call.
type Failure struct {
	Kind Kind

	// Status is the HTTP status code, zero when no response was received.
	Status int

	// Message is a short user-facing description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (f *Failure) Error() string {
	msg := f.Message
	if msg == "" {
		msg = f.Kind.String() + " failure"
	}
	if f.Status != 0 {
		msg = fmt.Sprintf("%s (%d)", msg, f.Status)
	}
	if f.Err != nil {
		return msg + ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }

// Is matches any *Failure with the same Kind, so
// errors.Is(err, gateway.ErrNotFound) works for every not-found failure.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	return ok && t.Kind == f.Kind
}

// Sentinels for errors.Is matching.
var (
	ErrValidation  = &Failure{Kind: KindValidation}
	ErrNotFound    = &Failure{Kind: KindNotFound}
	ErrConflict    = &Failure{Kind: KindConflict}
	ErrAuthExpired = &Failure{Kind: KindAuthExpired}
	ErrServer      = &Failure{Kind: KindServer}
	ErrTransient   = &Failure{Kind: KindTransient}
)

// Validation returns a validation failure with the given message.
func Validation(format string, args ...any) *Failure {
	return &Failure{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// SessionExpired returns the failure used when no usable session exists.
func SessionExpired() *Failure {
	return &Failure{Kind: KindAuthExpired, Message: "Session expired. Please login again."}
}

// KindOf returns the failure kind of err. Errors that are not a *Failure
// are treated as transient.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindTransient
}

// IsAuthExpired reports whether err (or any error in its chain) means the
// session is no longer valid.
func IsAuthExpired(err error) bool {
	return KindOf(err) == KindAuthExpired
}

// IsRetryable reports whether re-issuing the same request may succeed.
func IsRetryable(err error) bool {
	k := KindOf(err)
	return k == KindServer || k == KindTransient
}

// UserMessage returns text suitable for a notification.
func UserMessage(err error) string {
	var f *Failure
	if errors.As(err, &f) && f.Message != "" {
		return f.Message
	}
	switch KindOf(err) {
	case KindServer:
		return "Server error. Please try again later."
	case KindAuthExpired:
		return "Session expired. Please login again."
	default:
		return "Network error. Please try again."
	}
}

// classifyStatus maps an HTTP status code to a failure.
func classifyStatus(status int, detail string) *Failure {
	f := &Failure{Status: status, Message: detail}
	switch {
	case status == http.StatusUnauthorized:
		f.Kind = KindAuthExpired
		f.Message = "Session expired. Please login again."
	case status == http.StatusNotFound:
		f.Kind = KindNotFound
		if f.Message == "" {
			f.Message = "Task not found"
		}
	case status == http.StatusConflict:
		f.Kind = KindConflict
		if f.Message == "" {
			f.Message = "Conflict with existing data"
		}
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout:
		f.Kind = KindTransient
		if f.Message == "" {
			f.Message = "Request timed out. Please try again."
		}
	case status >= 500:
		f.Kind = KindServer
		f.Message = "Server error. Please try again later."
	default:
		f.Kind = KindValidation
		if f.Message == "" {
			f.Message = "Request rejected"
		}
	}
	return f
}

// classifyTransport wraps an error that prevented a response from arriving.
func classifyTransport(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	msg := "Network error. Please try again."
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		msg = "Request timed out. Please try again."
	}
	return &Failure{Kind: KindTransient, Message: msg, Err: err}
}
