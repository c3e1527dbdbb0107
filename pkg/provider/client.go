package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 8 << 20

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

// Client sends built requests to providers. It performs exactly one attempt
// per call and is safe for concurrent use.
type Client struct {
	http *http.Client
}

// NewClient creates a Client whose outbound calls are traced.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts out.Body to out.URL and returns the raw response body. The call
// is abandoned once timeout elapses; a zero timeout leaves only ctx in charge.
// Every failure is a *TransportError. Timeout is set only when this call's
// own deadline fired, not the caller's.
func (c *Client) Send(ctx context.Context, out *Outbound, timeout time.Duration) (string, error) {
	ownDeadline := false
	if timeout > 0 {
		parent := ctx
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
		ownDeadline = deadlineIsOwn(parent, ctx)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, out.URL, bytes.NewReader(out.Body))
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("creating HTTP request: %w", scrubURLError(err))}
	}
	httpReq.Header = out.Header.Clone()
	if httpReq.Header == nil {
		httpReq.Header = http.Header{}
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return "", transportFailure(ctx, ownDeadline, timeout, fmt.Errorf("sending HTTP request: %w", scrubURLError(err)))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes+1))
	if err != nil {
		return "", transportFailure(ctx, ownDeadline, timeout, fmt.Errorf("reading response body: %w", err))
	}
	if len(respBody) > maxResponseBytes {
		return "", &TransportError{Status: httpResp.StatusCode, Err: fmt.Errorf("response body exceeds %d bytes", maxResponseBytes)}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", &TransportError{
			Status: httpResp.StatusCode,
			Err:    errors.New(truncate(string(respBody), 200)),
		}
	}

	return string(respBody), nil
}

// deadlineIsOwn reports whether ctx, derived from parent with a timeout,
// expires strictly before parent does. When the parent's deadline is earlier
// the derived context simply inherits it.
func deadlineIsOwn(parent, ctx context.Context) bool {
	own, _ := ctx.Deadline()
	inherited, ok := parent.Deadline()
	return !ok || own.Before(inherited)
}

func transportFailure(ctx context.Context, ownDeadline bool, timeout time.Duration, err error) *TransportError {
	if ownDeadline && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TransportError{Timeout: true, Deadline: timeout, Err: err}
	}
	return &TransportError{Err: err}
}

// scrubURLError drops the query string from the URL recorded in a
// *url.Error; Gemini keys travel there.
func scrubURLError(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	scrubbed := *ue
	scrubbed.URL = redactURL(ue.URL)
	return &scrubbed
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}

// truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
