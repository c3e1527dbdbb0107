package provider

import (
	"fmt"
	"time"
)

// Stage names the decode level at which an upstream answer was rejected.
type Stage string

const (
	// StageEnvelope is the provider's top-level JSON structure.
	StageEnvelope Stage = "envelope"
	// StageContent is the JSON document encoded inside the envelope.
	StageContent Stage = "content"
)

// MalformedResponseError reports an upstream answer that could not be
// decoded into the expected shape.
type MalformedResponseError struct {
	Kind   Kind
	Stage  Stage
	Detail string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	msg := fmt.Sprintf("malformed %s response (%s): %s", e.Kind, e.Stage, e.Detail)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func malformed(kind Kind, stage Stage, err error, format string, args ...any) *MalformedResponseError {
	return &MalformedResponseError{Kind: kind, Stage: stage, Detail: fmt.Sprintf(format, args...), Err: err}
}

// TransportError reports a failed outbound call: the request could not be
// sent, the deadline elapsed, or the upstream answered with a non-2xx status.
// Its message never contains the request URL's query string.
type TransportError struct {
	// Status is the upstream HTTP status, or 0 when no response arrived.
	Status int
	// Timeout is set when the per-provider deadline elapsed.
	Timeout bool
	// Deadline is the bound that was applied to the call.
	Deadline time.Duration
	Err      error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("upstream did not respond within %s", e.Deadline)
	case e.Status != 0:
		return fmt.Sprintf("upstream returned HTTP %d: %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("upstream request failed: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }
