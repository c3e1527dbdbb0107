package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/SanketP2003/Ai-Content-Detection/pkg/provider"
)

// ErrorKind tags the failure category of an *Error.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindTransport
	KindTimeout
	KindMalformed
)

// String returns the metric/log label of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindTransport:
		return "transport_error"
	case KindTimeout:
		return "timeout"
	case KindMalformed:
		return "malformed_response"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the only error type the gateway returns. Message and Detail are
// safe to show to callers; Err holds the internal cause for logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Detail  string

	// ReceivedLines is set when a detection request had too few lines.
	ReceivedLines *int

	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + ": " + e.Message
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the failure category to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// unavailableMessage is the generic caller-facing text for upstream failures.
func unavailableMessage(task provider.Task) string {
	if task == provider.TaskDetect {
		return "AI detection service unavailable"
	}
	return "AI service unavailable"
}

// classify converts provider failures into an *Error. The caller-facing
// Detail is a short diagnostic, never the wrapped error text.
func classify(task provider.Task, err error) *Error {
	var (
		ge *Error
		te *provider.TransportError
		me *provider.MalformedResponseError
	)
	switch {
	case errors.As(err, &ge):
		return ge
	case errors.As(err, &te):
		if te.Timeout {
			return &Error{
				Kind:    KindTimeout,
				Message: unavailableMessage(task),
				Detail:  fmt.Sprintf("upstream did not respond within %s", te.Deadline),
				Err:     err,
			}
		}
		detail := "upstream request failed"
		if te.Status != 0 {
			detail = fmt.Sprintf("upstream returned HTTP %d", te.Status)
		}
		return &Error{Kind: KindTransport, Message: unavailableMessage(task), Detail: detail, Err: err}
	case errors.As(err, &me):
		return &Error{
			Kind:    KindMalformed,
			Message: "Invalid AI response format",
			Detail:  string(me.Stage) + ": " + me.Detail,
			Err:     err,
		}
	}
	return &Error{Kind: KindTransport, Message: unavailableMessage(task), Detail: "upstream request failed", Err: err}
}
