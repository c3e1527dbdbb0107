package provider

import (
	"encoding/json"
	"net/http"
)

// localRequest is the generate request body of the on-premise model server.
type localRequest struct {
	Model   string       `json:"model"`
	Prompt  string       `json:"prompt"`
	System  string       `json:"system"`
	Options localOptions `json:"options"`
	Stream  bool         `json:"stream"`
}

type localOptions struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx"`
}

// localResponse is the non-streaming generate response body.
type localResponse struct {
	Response *string `json:"response"`
}

func buildLocal(cfg Config, task Task, input string) (*Outbound, error) {
	system := SystemPrompt
	if task == TaskDetect {
		system = DetectionInstructions
	}

	body, err := json.Marshal(localRequest{
		Model:  cfg.Model,
		Prompt: input,
		System: system,
		Options: localOptions{
			Temperature: cfg.Temperature,
			NumCtx:      cfg.MaxTokens,
		},
		Stream: false,
	})
	if err != nil {
		return nil, err
	}
	return &Outbound{URL: cfg.BaseURL, Header: http.Header{}, Body: body}, nil
}

func extractLocal(raw string) (string, error) {
	var lr localResponse
	if err := json.Unmarshal([]byte(raw), &lr); err != nil {
		return "", malformed(KindLocal, StageEnvelope, err, "%s", describeDecodeError(err))
	}
	if lr.Response == nil {
		return "", malformed(KindLocal, StageEnvelope, nil, "missing field response")
	}
	return *lr.Response, nil
}
