package gateway

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func strPtr(s string) *string { return &s }

func requireValidation(t require.TestingT, err error) *Error {
	var ge *Error
	require.True(t, errors.As(err, &ge), "want *Error, got %v", err)
	require.Equal(t, KindValidation, ge.Kind)
	return ge
}

func TestValidateChat(t *testing.T) {
	tests := []struct {
		name    string
		prompt  *string
		wantErr bool
	}{
		{"absent", nil, true},
		{"empty", strPtr(""), true},
		{"whitespace", strPtr(" \t\r\n "), true},
		{"single char", strPtr("x"), false},
		{"padded", strPtr("  hello  "), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChat(ChatRequest{Prompt: tt.prompt})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			ge := requireValidation(t, err)
			assert.Equal(t, "Missing required field: prompt", ge.Message)
			assert.Nil(t, ge.ReceivedLines)
		})
	}
}

func TestValidateDetection_Absent(t *testing.T) {
	ge := requireValidation(t, ValidateDetection(DetectionRequest{}))
	assert.Equal(t, "Missing required field: text", ge.Message)
	assert.Nil(t, ge.ReceivedLines)
}

func TestValidateDetection_Boundary(t *testing.T) {
	nine := strings.Repeat("a line\n", 9)
	ge := requireValidation(t, ValidateDetection(DetectionRequest{Text: &nine}))
	require.NotNil(t, ge.ReceivedLines)
	assert.Equal(t, 9, *ge.ReceivedLines)
	assert.Equal(t, "Text must contain at least 10 non-empty lines", ge.Message)

	ten := strings.Repeat("a line\r\n", 10)
	assert.NoError(t, ValidateDetection(DetectionRequest{Text: &ten}))
}

func TestCountNonEmptyLines(t *testing.T) {
	tests := map[string]int{
		"":                       0,
		"one":                    1,
		"one\ntwo":               2,
		"one\r\ntwo\r\n":         2,
		"\n\n \n\t\nx\n":         1,
		"a\rb":                   1,
		"  lead\ntrail  \n   \n": 2,
	}
	for in, want := range tests {
		assert.Equal(t, want, CountNonEmptyLines(in), "CountNonEmptyLines(%q)", in)
	}
}

func TestValidateChat_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		prompt := rapid.String().Draw(rt, "prompt")
		err := ValidateChat(ChatRequest{Prompt: &prompt})
		if strings.TrimSpace(prompt) == "" {
			requireValidation(rt, err)
		} else if err != nil {
			rt.Fatalf("ValidateChat(%q) = %v, want nil", prompt, err)
		}
	})
}

func TestValidateDetection_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lines := rapid.SliceOfN(rapid.StringMatching(`[A-Za-z][A-Za-z .,]{0,20}`), 0, 30).Draw(rt, "lines")
		blanks := rapid.SliceOfN(rapid.SampledFrom([]string{"", " ", "\t", "   "}), len(lines), len(lines)).Draw(rt, "blanks")
		seps := rapid.SliceOfN(rapid.SampledFrom([]string{"\n", "\r\n"}), len(lines), len(lines)).Draw(rt, "seps")

		var b strings.Builder
		for i, line := range lines {
			b.WriteString(line)
			b.WriteString(seps[i])
			b.WriteString(blanks[i])
			b.WriteString(seps[i])
		}
		text := b.String()

		err := ValidateDetection(DetectionRequest{Text: &text})
		if len(lines) >= MinDetectionLines {
			if err != nil {
				rt.Fatalf("ValidateDetection with %d lines = %v, want nil", len(lines), err)
			}
			return
		}
		ge := requireValidation(rt, err)
		if ge.ReceivedLines == nil || *ge.ReceivedLines != len(lines) {
			rt.Fatalf("ReceivedLines = %v, want %d", ge.ReceivedLines, len(lines))
		}
	})
}
