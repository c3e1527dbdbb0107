package gatewaytest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SanketP2003/Ai-Content-Detection/pkg/provider"
)

// Response is one scripted outcome of a MockSender call.
type Response struct {
	Body string
	Err  error
}

// Reply scripts a successful call returning body.
func Reply(body string) Response { return Response{Body: body} }

// Fail scripts a failed call.
func Fail(err error) Response { return Response{Err: err} }

// SentRequest records one call made to a MockSender.
type SentRequest struct {
	Outbound *provider.Outbound
	Timeout  time.Duration
}

// MockSender returns pre-configured responses in sequence and records every
// call. It is safe for concurrent use.
type MockSender struct {
	responses []Response
	mu        sync.Mutex
	sent      []SentRequest
}

// NewMockSender creates a MockSender that returns the given responses in
// order. Once all responses are consumed, subsequent calls return an error.
func NewMockSender(responses ...Response) *MockSender {
	return &MockSender{responses: responses}
}

// Send records the call and returns the next scripted response.
func (m *MockSender) Send(_ context.Context, out *provider.Outbound, timeout time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := len(m.sent)
	m.sent = append(m.sent, SentRequest{Outbound: out, Timeout: timeout})
	if idx >= len(m.responses) {
		return "", fmt.Errorf("mock sender: no more responses (consumed %d/%d)", idx, len(m.responses))
	}
	r := m.responses[idx]
	return r.Body, r.Err
}

// Calls returns how many times Send was called.
func (m *MockSender) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// Sent returns a copy of all recorded calls.
func (m *MockSender) Sent() []SentRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentRequest, len(m.sent))
	copy(out, m.sent)
	return out
}
