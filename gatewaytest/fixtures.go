package gatewaytest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DetectionDoc is a well-formed detection document with probability 42.
const DetectionDoc = `{"probability":42,"metrics":{"perplexity":35,"burstiness":20,"consistency":80},"patterns":["repetitive transitions"],"analysis":"Mixed signals."}`

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// LocalChat returns a local model server envelope carrying text.
func LocalChat(text string) string {
	return fmt.Sprintf(`{"model":"mistral:instruct","response":%s,"done":true}`, quote(text))
}

// LocalDetection returns a local model server envelope whose response field
// carries doc as a JSON-encoded string.
func LocalDetection(doc string) string {
	return LocalChat(doc)
}

// HostedChat returns a chat completion envelope carrying content.
func HostedChat(content string) string {
	return fmt.Sprintf(`{"id":"chatcmpl-test","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}]}`, quote(content))
}

// Gemini returns a generateContent envelope carrying text.
func Gemini(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[{"text":%s}]},"finishReason":"STOP"}]}`, quote(text))
}

// Lines returns text with n non-empty lines separated by a mix of LF, CRLF
// and blank lines.
func Lines(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Sentence number %d of the sample.", i+1)
		switch i % 3 {
		case 0:
			b.WriteString("\n")
		case 1:
			b.WriteString("\r\n   \r\n")
		default:
			b.WriteString("\n\t\n")
		}
	}
	return b.String()
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
