package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SanketP2003/Ai-Content-Detection/gatewaytest"
	"github.com/SanketP2003/Ai-Content-Detection/pkg/gateway"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestConfigValidate(t *testing.T) {
	path := writeConfig(t, "listen_addr: \":9000\"\n")
	out, err := execute(t, "", "config", "validate", "--config", path)
	if err != nil {
		t.Fatalf("config validate error: %v", err)
	}
	if !strings.Contains(out, "is valid") {
		t.Errorf("output = %q, want it to report a valid config", out)
	}
}

func TestConfigValidate_BadRoute(t *testing.T) {
	path := writeConfig(t, "routes:\n  detect: gemini\n")
	_, err := execute(t, "", "config", "validate", "--config", path)
	if err == nil {
		t.Fatal("config validate expected error for gemini detection route")
	}
}

func TestProviders(t *testing.T) {
	path := writeConfig(t, "log_level: error\n")
	out, err := execute(t, "", "providers", "--config", path)
	if err != nil {
		t.Fatalf("providers error: %v", err)
	}
	for _, want := range []string{"gemini", "ollama-detect", "openai"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing provider %q:\n%s", want, out)
		}
	}
}

func TestDetect_ShortStdinIsRejected(t *testing.T) {
	path := writeConfig(t, "log_level: error\n")
	_, err := execute(t, "one\ntwo\n", "detect", "--config", path)

	var ge *gateway.Error
	if !errors.As(err, &ge) {
		t.Fatalf("detect error = %v, want *gateway.Error", err)
	}
	if ge.ReceivedLines == nil || *ge.ReceivedLines != 2 {
		t.Errorf("ReceivedLines = %v, want 2", ge.ReceivedLines)
	}
}

func TestDetect_AgainstUpstream(t *testing.T) {
	upstream := gatewaytest.NewUpstream(t, 200, gatewaytest.LocalDetection(gatewaytest.DetectionDoc))
	path := writeConfig(t, `
log_level: error
providers:
  ollama-detect:
    kind: local
    base_url: `+upstream.URL+`
    model: mistral:instruct
    temperature: 0.1
    max_tokens: 4096
    timeout_seconds: 5
`)
	out, err := execute(t, gatewaytest.Lines(10), "detect", "-", "--config", path)
	if err != nil {
		t.Fatalf("detect error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got["probability"] != 42.0 {
		t.Errorf("probability = %v, want 42", got["probability"])
	}
	if upstream.Calls() != 1 {
		t.Errorf("upstream calls = %d, want 1", upstream.Calls())
	}
}
