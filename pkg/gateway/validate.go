package gateway

import (
	"fmt"
	"regexp"
	"strings"
)

// MinDetectionLines is the minimum number of non-empty lines a detection
// request must carry.
const MinDetectionLines = 10

var lineBreak = regexp.MustCompile(`\r?\n`)

// ChatRequest is a caller's chat request. A nil Prompt means the field was
// absent.
type ChatRequest struct {
	Prompt *string `json:"prompt"`
}

// DetectionRequest is a caller's bulk detection request. A nil Text means the
// field was absent.
type DetectionRequest struct {
	Text *string `json:"text"`
}

// ValidateChat rejects absent or blank prompts.
func ValidateChat(req ChatRequest) error {
	if req.Prompt == nil || strings.TrimSpace(*req.Prompt) == "" {
		return validationError("Missing required field: prompt")
	}
	return nil
}

// ValidateDetection rejects absent text and text with fewer than
// MinDetectionLines non-empty lines. The observed count travels in the error.
func ValidateDetection(req DetectionRequest) error {
	if req.Text == nil {
		return validationError("Missing required field: text")
	}
	if n := CountNonEmptyLines(*req.Text); n < MinDetectionLines {
		err := validationError(fmt.Sprintf("Text must contain at least %d non-empty lines", MinDetectionLines))
		err.ReceivedLines = &n
		return err
	}
	return nil
}

// CountNonEmptyLines splits text on CR/LF line breaks and counts the lines
// that are not blank.
func CountNonEmptyLines(text string) int {
	n := 0
	for _, line := range lineBreak.Split(text, -1) {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
