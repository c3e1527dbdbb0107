package provider

import (
	"encoding/json"
	"net/http"
)

// chatCompletionRequest is the OpenAI-style chat completion request body.
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
}

// detectionCompletionRequest is the request body of the hosted detection
// deployment. The deployment URL selects the model.
type detectionCompletionRequest struct {
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the subset of the chat completion response the
// gateway reads.
type chatCompletionResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message *chatChoiceMessage `json:"message"`
}

type chatChoiceMessage struct {
	Content *string `json:"content"`
}

func buildHostedChat(cfg Config, prompt string) (*Outbound, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}
	return &Outbound{URL: cfg.BaseURL, Header: bearer(cfg.APIKey), Body: body}, nil
}

func buildHostedDetection(cfg Config, text string) (*Outbound, error) {
	body, err := json.Marshal(detectionCompletionRequest{
		Messages: []chatMessage{
			{Role: "system", Content: DetectionInstructions},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return nil, err
	}
	return &Outbound{URL: cfg.BaseURL, Header: bearer(cfg.APIKey), Body: body}, nil
}

func bearer(apiKey string) http.Header {
	h := http.Header{}
	if apiKey != "" {
		h.Set("Authorization", "Bearer "+apiKey)
	}
	return h
}

func extractChoices(kind Kind, raw string) (string, error) {
	var cr chatCompletionResponse
	if err := json.Unmarshal([]byte(raw), &cr); err != nil {
		return "", malformed(kind, StageEnvelope, err, "%s", describeDecodeError(err))
	}
	if cr.Choices == nil {
		return "", malformed(kind, StageEnvelope, nil, "missing field choices")
	}
	if len(cr.Choices) == 0 {
		return "", malformed(kind, StageEnvelope, nil, "choices is empty")
	}
	msg := cr.Choices[0].Message
	if msg == nil {
		return "", malformed(kind, StageEnvelope, nil, "missing field choices[0].message")
	}
	if msg.Content == nil {
		return "", malformed(kind, StageEnvelope, nil, "missing field choices[0].message.content")
	}
	return *msg.Content, nil
}
