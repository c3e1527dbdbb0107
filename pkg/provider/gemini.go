package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// generateContentRequest is the Gemini generateContent request body.
type generateContentRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// generateContentResponse is the subset of the Gemini response the gateway
// reads.
type generateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content *geminiResponseContent `json:"content"`
}

type geminiResponseContent struct {
	Parts []geminiResponsePart `json:"parts"`
}

type geminiResponsePart struct {
	Text *string `json:"text"`
}

func buildGemini(cfg Config, prompt string) (*Outbound, error) {
	endpoint, err := geminiURL(cfg)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(generateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: SystemPrompt + "\n\n" + prompt}},
		}},
	})
	if err != nil {
		return nil, err
	}
	return &Outbound{URL: endpoint, Header: http.Header{}, Body: body}, nil
}

// geminiURL substitutes the model into the base URL and appends the API key
// as the key query parameter.
func geminiURL(cfg Config) (string, error) {
	raw := strings.ReplaceAll(cfg.BaseURL, "{model}", url.PathEscape(cfg.Model))
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	if cfg.APIKey != "" {
		q := u.Query()
		q.Set("key", cfg.APIKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func extractGemini(raw string) (string, error) {
	var gr generateContentResponse
	if err := json.Unmarshal([]byte(raw), &gr); err != nil {
		return "", malformed(KindGemini, StageEnvelope, err, "%s", describeDecodeError(err))
	}
	switch {
	case gr.Candidates == nil:
		return "", malformed(KindGemini, StageEnvelope, nil, "missing field candidates")
	case len(gr.Candidates) == 0:
		return "", malformed(KindGemini, StageEnvelope, nil, "candidates is empty")
	case gr.Candidates[0].Content == nil:
		return "", malformed(KindGemini, StageEnvelope, nil, "missing field candidates[0].content")
	case len(gr.Candidates[0].Content.Parts) == 0:
		return "", malformed(KindGemini, StageEnvelope, nil, "candidates[0].content.parts is empty")
	case gr.Candidates[0].Content.Parts[0].Text == nil:
		return "", malformed(KindGemini, StageEnvelope, nil, "missing field candidates[0].content.parts[0].text")
	}
	return *gr.Candidates[0].Content.Parts[0].Text, nil
}
