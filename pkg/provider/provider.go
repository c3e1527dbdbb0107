package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Kind identifies a provider wire contract.
type Kind string

const (
	KindLocal           Kind = "local"
	KindHostedChat      Kind = "hosted_chat"
	KindHostedDetection Kind = "hosted_detection"
	KindGemini          Kind = "gemini"
)

// Kinds lists every supported provider kind.
var Kinds = []Kind{KindLocal, KindHostedChat, KindHostedDetection, KindGemini}

// ParseKind converts a configuration string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown provider kind %q", s)
}

// Supports reports whether the kind has a wire contract for the task.
func (k Kind) Supports(task Task) bool {
	switch k {
	case KindLocal:
		return task == TaskChat || task == TaskDetect
	case KindHostedChat, KindGemini:
		return task == TaskChat
	case KindHostedDetection:
		return task == TaskDetect
	}
	return false
}

// Task is the kind of work a caller asks the gateway to do.
type Task string

const (
	TaskChat   Task = "chat"
	TaskDetect Task = "detect"
)

// Config describes one configured upstream. It is built once at startup and
// passed around by value.
type Config struct {
	Name        string
	Kind        Kind
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Outbound is a fully built provider request.
type Outbound struct {
	URL    string
	Header http.Header
	Body   []byte
}

// ChatResult is the normalized answer to a chat request.
type ChatResult struct {
	Text string `json:"text"`
}

// DetectionResult is the normalized answer to a detection request. Numeric
// fields are passed through exactly as the model produced them.
type DetectionResult struct {
	Probability float64          `json:"probability"`
	Metrics     DetectionMetrics `json:"metrics"`
	Patterns    []string         `json:"patterns"`
	Analysis    string           `json:"analysis"`

	// Repaired is set when the document only parsed after JSON repair.
	Repaired bool `json:"-"`
}

// DetectionMetrics holds the per-signal scores of a detection answer.
type DetectionMetrics struct {
	Perplexity  float64 `json:"perplexity"`
	Burstiness  float64 `json:"burstiness"`
	Consistency float64 `json:"consistency"`
}

// Build produces the outbound request for the given task and caller input.
// It performs no I/O.
func Build(cfg Config, task Task, input string) (*Outbound, error) {
	if !cfg.Kind.Supports(task) {
		return nil, fmt.Errorf("provider %q (%s) does not support task %s", cfg.Name, cfg.Kind, task)
	}

	var (
		out *Outbound
		err error
	)
	switch cfg.Kind {
	case KindLocal:
		out, err = buildLocal(cfg, task, input)
	case KindHostedChat:
		out, err = buildHostedChat(cfg, input)
	case KindHostedDetection:
		out, err = buildHostedDetection(cfg, input)
	case KindGemini:
		out, err = buildGemini(cfg, input)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", cfg.Kind, err)
	}
	out.Header.Set("Content-Type", "application/json")
	return out, nil
}

// ExtractChat parses a raw chat envelope from a provider of the given kind.
func ExtractChat(kind Kind, raw string) (*ChatResult, error) {
	content, err := extractContent(kind, raw)
	if err != nil {
		return nil, err
	}
	return &ChatResult{Text: content}, nil
}

// ExtractDetection parses a raw detection envelope and decodes the JSON
// document carried inside it.
func ExtractDetection(kind Kind, raw string) (*DetectionResult, error) {
	if !kind.Supports(TaskDetect) {
		return nil, &MalformedResponseError{Kind: kind, Stage: StageEnvelope, Detail: "provider has no detection contract"}
	}
	content, err := extractContent(kind, raw)
	if err != nil {
		return nil, err
	}
	res, err := decodeDetection(content)
	if err != nil {
		var me *MalformedResponseError
		if errors.As(err, &me) {
			me.Kind = kind
		}
		return nil, err
	}
	return res, nil
}

func extractContent(kind Kind, raw string) (string, error) {
	switch kind {
	case KindLocal:
		return extractLocal(raw)
	case KindHostedChat, KindHostedDetection:
		return extractChoices(kind, raw)
	case KindGemini:
		return extractGemini(raw)
	}
	return "", &MalformedResponseError{Kind: kind, Stage: StageEnvelope, Detail: "unknown provider kind"}
}
