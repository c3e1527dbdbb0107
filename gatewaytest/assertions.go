package gatewaytest

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/SanketP2003/Ai-Content-Detection/pkg/gateway"
	"github.com/SanketP2003/Ai-Content-Detection/pkg/provider"
)

// AssertGatewayError fails the test unless err is a *gateway.Error of the
// given kind, and returns it for further checks.
func AssertGatewayError(t testing.TB, err error, kind gateway.ErrorKind) *gateway.Error {
	t.Helper()
	var ge *gateway.Error
	if !errors.As(err, &ge) {
		t.Fatalf("error = %v, want *gateway.Error", err)
	}
	if ge.Kind != kind {
		t.Errorf("Kind = %s, want %s (err = %v)", ge.Kind, kind, err)
	}
	return ge
}

// AssertDetection asserts that got carries the same analysis as wantDoc, a
// JSON detection document. The Repaired flag is not compared.
func AssertDetection(t testing.TB, got *provider.DetectionResult, wantDoc string) {
	t.Helper()
	if got == nil {
		t.Fatal("detection result is nil")
	}
	var want provider.DetectionResult
	if err := json.Unmarshal([]byte(wantDoc), &want); err != nil {
		t.Fatalf("invalid expected document: %v", err)
	}
	want.Repaired = got.Repaired
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("detection result = %+v, want %+v", *got, want)
	}
}

// ErrorBody is the decoded body of an API error response.
type ErrorBody struct {
	Error         string `json:"error"`
	Details       string `json:"details"`
	ReceivedLines *int   `json:"received_lines"`
}

// AssertErrorBody decodes an API error response and checks its error
// message. Callers inspect the returned body for details.
func AssertErrorBody(t testing.TB, data []byte, wantError string) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("error body is not JSON: %v\n  body: %s", err, data)
	}
	if body.Error != wantError {
		t.Errorf("error = %q, want %q", body.Error, wantError)
	}
	return body
}

// AssertNoLeak asserts that none of the given fragments (keys, internal error
// text, addresses) appear in s.
func AssertNoLeak(t testing.TB, s string, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		if f != "" && strings.Contains(s, f) {
			t.Errorf("output leaks %q\n  output: %s", f, s)
		}
	}
}
