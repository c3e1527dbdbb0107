package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanketP2003/Ai-Content-Detection/gatewaytest"
	"github.com/SanketP2003/Ai-Content-Detection/pkg/gateway"
	"github.com/SanketP2003/Ai-Content-Detection/pkg/provider"
	"github.com/SanketP2003/Ai-Content-Detection/pkg/telemetry"
)

var (
	localChat = provider.Config{
		Name: "ollama", Kind: provider.KindLocal, BaseURL: "http://localhost:11434/api/generate",
		Model: "mistral:instruct", Temperature: 0.7, MaxTokens: 4096, Timeout: 10 * time.Second,
	}
	localDetect = provider.Config{
		Name: "ollama-detect", Kind: provider.KindLocal, BaseURL: "http://localhost:11434/api/generate",
		Model: "mistral:instruct", Temperature: 0.1, MaxTokens: 4096, Timeout: 30 * time.Second,
	}
	openAIChat = provider.Config{
		Name: "openai", Kind: provider.KindHostedChat, BaseURL: "https://api.openai.com/v1/chat/completions",
		APIKey: "sk-secret", Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 512, Timeout: 15 * time.Second,
	}
)

func newGateway(t *testing.T, routes map[provider.Task]provider.Config, sender gateway.Sender, opts ...gateway.Option) *gateway.Gateway {
	t.Helper()
	gw, err := gateway.New(routes, sender, opts...)
	require.NoError(t, err)
	return gw
}

func TestChat_Success(t *testing.T) {
	sender := gatewaytest.NewMockSender(gatewaytest.Reply(gatewaytest.LocalChat("hello")))
	gw := newGateway(t, map[provider.Task]provider.Config{provider.TaskChat: localChat}, sender)

	res, err := gw.Chat(context.Background(), gateway.ChatRequest{Prompt: gatewaytest.Ptr("hi")})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, 10*time.Second, sent[0].Timeout)
	assert.Equal(t, localChat.BaseURL, sent[0].Outbound.URL)

	var body map[string]any
	require.NoError(t, json.Unmarshal(sent[0].Outbound.Body, &body))
	assert.Equal(t, "hi", body["prompt"])
}

func TestDetect_ShortTextNeverCallsUpstream(t *testing.T) {
	sender := gatewaytest.NewMockSender()
	gw := newGateway(t, map[provider.Task]provider.Config{provider.TaskDetect: localDetect}, sender)

	_, err := gw.Detect(context.Background(), gateway.DetectionRequest{Text: gatewaytest.Ptr(gatewaytest.Lines(3))})

	ge := gatewaytest.AssertGatewayError(t, err, gateway.KindValidation)
	require.NotNil(t, ge.ReceivedLines)
	assert.Equal(t, 3, *ge.ReceivedLines)
	assert.Equal(t, http.StatusBadRequest, ge.HTTPStatus())
	assert.Zero(t, sender.Calls())
}

func TestDetect_DoubleDecode(t *testing.T) {
	sender := gatewaytest.NewMockSender(gatewaytest.Reply(gatewaytest.LocalDetection(gatewaytest.DetectionDoc)))
	gw := newGateway(t, map[provider.Task]provider.Config{provider.TaskDetect: localDetect}, sender)

	res, err := gw.Detect(context.Background(), gateway.DetectionRequest{Text: gatewaytest.Ptr(gatewaytest.Lines(10))})
	require.NoError(t, err)
	gatewaytest.AssertDetection(t, res, gatewaytest.DetectionDoc)
	assert.Equal(t, 30*time.Second, sender.Sent()[0].Timeout)
}

func TestChat_MalformedEnvelope(t *testing.T) {
	sender := gatewaytest.NewMockSender(gatewaytest.Reply(`{"object":"chat.completion"}`))
	gw := newGateway(t, map[provider.Task]provider.Config{provider.TaskChat: openAIChat}, sender)

	_, err := gw.Chat(context.Background(), gateway.ChatRequest{Prompt: gatewaytest.Ptr("hi")})

	ge := gatewaytest.AssertGatewayError(t, err, gateway.KindMalformed)
	assert.Equal(t, "Invalid AI response format", ge.Message)
	assert.Equal(t, "envelope: missing field choices", ge.Detail)
	assert.Equal(t, http.StatusInternalServerError, ge.HTTPStatus())
}

func TestDetect_MalformedContent(t *testing.T) {
	sender := gatewaytest.NewMockSender(gatewaytest.Reply(gatewaytest.LocalDetection("Sorry, I can't help with that.")))
	gw := newGateway(t, map[provider.Task]provider.Config{provider.TaskDetect: localDetect}, sender)

	_, err := gw.Detect(context.Background(), gateway.DetectionRequest{Text: gatewaytest.Ptr(gatewaytest.Lines(12))})

	ge := gatewaytest.AssertGatewayError(t, err, gateway.KindMalformed)
	assert.Contains(t, ge.Detail, "content:")
}

func TestDetect_TruncatedDocumentIsMalformed(t *testing.T) {
	cut := gatewaytest.DetectionDoc[:len(gatewaytest.DetectionDoc)-12]
	sender := gatewaytest.NewMockSender(gatewaytest.Reply(gatewaytest.LocalDetection(cut)))
	gw := newGateway(t, map[provider.Task]provider.Config{provider.TaskDetect: localDetect}, sender)

	res, err := gw.Detect(context.Background(), gateway.DetectionRequest{Text: gatewaytest.Ptr(gatewaytest.Lines(10))})

	assert.Nil(t, res)
	ge := gatewaytest.AssertGatewayError(t, err, gateway.KindMalformed)
	assert.Equal(t, "Invalid AI response format", ge.Message)
	assert.Equal(t, "content: detection document is not valid JSON", ge.Detail)
}

func TestChat_TransportErrorIsGeneric(t *testing.T) {
	upstreamErr := &provider.TransportError{Status: http.StatusServiceUnavailable, Err: errors.New("dial tcp 10.0.0.5:443: secret internals")}
	sender := gatewaytest.NewMockSender(gatewaytest.Fail(upstreamErr))
	gw := newGateway(t, map[provider.Task]provider.Config{provider.TaskChat: openAIChat}, sender)

	_, err := gw.Chat(context.Background(), gateway.ChatRequest{Prompt: gatewaytest.Ptr("hi")})

	ge := gatewaytest.AssertGatewayError(t, err, gateway.KindTransport)
	assert.Equal(t, "AI service unavailable", ge.Message)
	assert.Equal(t, "upstream returned HTTP 503", ge.Detail)
	gatewaytest.AssertNoLeak(t, ge.Message+ge.Detail, "secret internals", "10.0.0.5")
	assert.ErrorIs(t, err, upstreamErr)
}

func TestChat_TimeoutAgainstHangingUpstream(t *testing.T) {
	upstream := gatewaytest.NewHangingUpstream(t, 5*time.Second)
	cfg := localChat
	cfg.BaseURL = upstream.URL
	cfg.Timeout = 50 * time.Millisecond
	gw := newGateway(t, map[provider.Task]provider.Config{provider.TaskChat: cfg}, provider.NewClient())

	start := time.Now()
	_, err := gw.Chat(context.Background(), gateway.ChatRequest{Prompt: gatewaytest.Ptr("hi")})

	ge := gatewaytest.AssertGatewayError(t, err, gateway.KindTimeout)
	assert.Equal(t, http.StatusGatewayTimeout, ge.HTTPStatus())
	assert.Equal(t, "upstream did not respond within 50ms", ge.Detail)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, upstream.Calls())
}

func TestHandle_DecodesRequestMap(t *testing.T) {
	sender := gatewaytest.NewMockSender(
		gatewaytest.Reply(gatewaytest.LocalChat("reply")),
		gatewaytest.Reply(gatewaytest.LocalDetection(gatewaytest.DetectionDoc)),
	)
	gw := newGateway(t, map[provider.Task]provider.Config{
		provider.TaskChat:   localChat,
		provider.TaskDetect: localDetect,
	}, sender)

	got, err := gw.Handle(context.Background(), provider.TaskChat, map[string]any{"prompt": "hi"})
	require.NoError(t, err)
	assert.Equal(t, &provider.ChatResult{Text: "reply"}, got)

	got, err = gw.Handle(context.Background(), provider.TaskDetect, map[string]any{"text": gatewaytest.Lines(10)})
	require.NoError(t, err)
	require.IsType(t, &provider.DetectionResult{}, got)
}

func TestHandle_RejectsBadFields(t *testing.T) {
	sender := gatewaytest.NewMockSender()
	gw := newGateway(t, map[provider.Task]provider.Config{
		provider.TaskChat:   localChat,
		provider.TaskDetect: localDetect,
	}, sender)

	tests := []struct {
		name    string
		task    provider.Task
		body    map[string]any
		message string
	}{
		{"prompt absent", provider.TaskChat, map[string]any{}, "Missing required field: prompt"},
		{"prompt null", provider.TaskChat, map[string]any{"prompt": nil}, "Missing required field: prompt"},
		{"prompt number", provider.TaskChat, map[string]any{"prompt": 42.0}, "Field prompt must be a string"},
		{"text absent", provider.TaskDetect, map[string]any{"prompt": "x"}, "Missing required field: text"},
		{"text list", provider.TaskDetect, map[string]any{"text": []any{"a"}}, "Field text must be a string"},
		{"unknown task", provider.Task("summarize"), map[string]any{}, `unsupported task "summarize"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gw.Handle(context.Background(), tt.task, tt.body)
			ge := gatewaytest.AssertGatewayError(t, err, gateway.KindValidation)
			assert.Equal(t, tt.message, ge.Message)
		})
	}
	assert.Zero(t, sender.Calls())
}

func TestNew_RejectsUnsupportedRoute(t *testing.T) {
	gemini := provider.Config{Name: "gemini", Kind: provider.KindGemini}
	_, err := gateway.New(map[provider.Task]provider.Config{provider.TaskDetect: gemini}, gatewaytest.NewMockSender())
	assert.Error(t, err)

	_, err = gateway.New(nil, nil)
	assert.Error(t, err)
}

func TestDetect_NoRouteConfigured(t *testing.T) {
	gw := newGateway(t, map[provider.Task]provider.Config{provider.TaskChat: localChat}, gatewaytest.NewMockSender())

	_, err := gw.Detect(context.Background(), gateway.DetectionRequest{Text: gatewaytest.Ptr(gatewaytest.Lines(10))})
	ge := gatewaytest.AssertGatewayError(t, err, gateway.KindTransport)
	assert.Equal(t, "no provider configured", ge.Detail)
}

func TestChat_ConcurrentRequestsAreIndependent(t *testing.T) {
	const n = 25
	responses := make([]gatewaytest.Response, n)
	for i := range responses {
		responses[i] = gatewaytest.Reply(gatewaytest.LocalChat("ok"))
	}
	sender := gatewaytest.NewMockSender(responses...)
	gw := newGateway(t, map[provider.Task]provider.Config{provider.TaskChat: localChat}, sender)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gw.Chat(context.Background(), gateway.ChatRequest{Prompt: gatewaytest.Ptr("hi")})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, n, sender.Calls())
}

func TestMetricsRecordOutcomes(t *testing.T) {
	metrics := telemetry.NewMetrics()
	sender := gatewaytest.NewMockSender(gatewaytest.Reply(gatewaytest.LocalChat("ok")))
	gw := newGateway(t, map[provider.Task]provider.Config{
		provider.TaskChat:   localChat,
		provider.TaskDetect: localDetect,
	}, sender, gateway.WithMetrics(metrics))

	_, err := gw.Chat(context.Background(), gateway.ChatRequest{Prompt: gatewaytest.Ptr("hi")})
	require.NoError(t, err)
	_, err = gw.Detect(context.Background(), gateway.DetectionRequest{Text: gatewaytest.Ptr("too short")})
	require.Error(t, err)

	upstreamSeries, err := testutil.GatherAndCount(metrics.Registry(), "gateway_upstream_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, upstreamSeries)
	expected := map[[3]string]float64{
		{"chat", "ollama", "ok"}:                        1,
		{"detect", "ollama-detect", "validation_error"}: 1,
	}
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	found := 0
	for _, mf := range families {
		if mf.GetName() != "gateway_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			key := [3]string{labels["task"], labels["provider"], labels["outcome"]}
			want, ok := expected[key]
			require.True(t, ok, "unexpected series %v", key)
			assert.Equal(t, want, m.GetCounter().GetValue())
			found++
		}
	}
	assert.Equal(t, len(expected), found)
}
