package gatewaytest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// Upstream is a fake provider endpoint that records request bodies.
type Upstream struct {
	*httptest.Server

	mu     sync.Mutex
	bodies []string
}

// NewUpstream starts a fake provider answering every request with status and
// body. It is closed when the test ends.
func NewUpstream(t testing.TB, status int, body string) *Upstream {
	return newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	})
}

// NewHangingUpstream starts a fake provider that never answers before the
// client gives up (or hold elapses).
func NewHangingUpstream(t testing.TB, hold time.Duration) *Upstream {
	return newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(hold):
		}
	})
}

func newUpstream(t testing.TB, h http.HandlerFunc) *Upstream {
	t.Helper()
	u := &Upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		u.mu.Lock()
		u.bodies = append(u.bodies, string(body))
		u.mu.Unlock()
		h(w, r)
	}))
	t.Cleanup(u.Server.Close)
	return u
}

// Calls returns how many requests reached the upstream.
func (u *Upstream) Calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.bodies)
}

// Bodies returns the request bodies received so far.
func (u *Upstream) Bodies() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, len(u.bodies))
	copy(out, u.bodies)
	return out
}
