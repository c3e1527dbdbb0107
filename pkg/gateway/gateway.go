// Package gateway validates caller requests, forwards them to the provider
// configured for the task and normalizes the answer. Every failure leaves the
// package as an *Error.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SanketP2003/Ai-Content-Detection/pkg/logging"
	"github.com/SanketP2003/Ai-Content-Detection/pkg/provider"
	"github.com/SanketP2003/Ai-Content-Detection/pkg/telemetry"
)

const tracerName = "github.com/SanketP2003/Ai-Content-Detection/pkg/gateway"

// Sender performs one outbound provider call.
type Sender interface {
	Send(ctx context.Context, out *provider.Outbound, timeout time.Duration) (string, error)
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger used for per-request log lines.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithTracer overrides the tracer (useful for testing).
func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) { g.tracer = t }
}

// Gateway routes each task to one provider. It holds no mutable state and
// is safe for concurrent use; each call is a single independent attempt.
type Gateway struct {
	routes  map[provider.Task]provider.Config
	sender  Sender
	logger  *slog.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

// New creates a Gateway serving the given task routes. The route map is
// copied.
func New(routes map[provider.Task]provider.Config, sender Sender, opts ...Option) (*Gateway, error) {
	if sender == nil {
		return nil, fmt.Errorf("gateway: sender is required")
	}
	g := &Gateway{
		routes: make(map[provider.Task]provider.Config, len(routes)),
		sender: sender,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for task, cfg := range routes {
		if !cfg.Kind.Supports(task) {
			return nil, fmt.Errorf("gateway: provider %q (%s) cannot serve task %s", cfg.Name, cfg.Kind, task)
		}
		g.routes[task] = cfg
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Route returns the provider configured for task.
func (g *Gateway) Route(task provider.Task) (provider.Config, bool) {
	cfg, ok := g.routes[task]
	return cfg, ok
}

// Handle decodes a request map for task and dispatches it. The result is a
// *provider.ChatResult or *provider.DetectionResult.
func (g *Gateway) Handle(ctx context.Context, task provider.Task, body map[string]any) (any, error) {
	switch task {
	case provider.TaskChat:
		prompt, err := stringField(body, "prompt")
		if err != nil {
			g.finish(ctx, task, g.routes[task], time.Now(), err)
			return nil, err
		}
		return g.Chat(ctx, ChatRequest{Prompt: prompt})
	case provider.TaskDetect:
		text, err := stringField(body, "text")
		if err != nil {
			g.finish(ctx, task, g.routes[task], time.Now(), err)
			return nil, err
		}
		return g.Detect(ctx, DetectionRequest{Text: text})
	}
	return nil, validationError(fmt.Sprintf("unsupported task %q", task))
}

// Chat validates req, asks the chat provider and returns its reply.
func (g *Gateway) Chat(ctx context.Context, req ChatRequest) (*provider.ChatResult, error) {
	start := time.Now()
	cfg := g.routes[provider.TaskChat]
	if err := ValidateChat(req); err != nil {
		g.finish(ctx, provider.TaskChat, cfg, start, err)
		return nil, err
	}

	ctx, span := g.startSpan(ctx, provider.TaskChat, cfg)
	defer span.End()

	raw, err := g.call(ctx, provider.TaskChat, *req.Prompt)
	if err != nil {
		return nil, g.fail(ctx, span, provider.TaskChat, cfg, start, err)
	}
	res, err := provider.ExtractChat(cfg.Kind, raw)
	if err != nil {
		return nil, g.fail(ctx, span, provider.TaskChat, cfg, start, err)
	}

	g.finish(ctx, provider.TaskChat, cfg, start, nil)
	return res, nil
}

// Detect validates req, asks the detection provider and returns the decoded
// analysis.
func (g *Gateway) Detect(ctx context.Context, req DetectionRequest) (*provider.DetectionResult, error) {
	start := time.Now()
	cfg := g.routes[provider.TaskDetect]
	if err := ValidateDetection(req); err != nil {
		g.finish(ctx, provider.TaskDetect, cfg, start, err)
		return nil, err
	}

	ctx, span := g.startSpan(ctx, provider.TaskDetect, cfg)
	defer span.End()

	raw, err := g.call(ctx, provider.TaskDetect, *req.Text)
	if err != nil {
		return nil, g.fail(ctx, span, provider.TaskDetect, cfg, start, err)
	}
	res, err := provider.ExtractDetection(cfg.Kind, raw)
	if err != nil {
		return nil, g.fail(ctx, span, provider.TaskDetect, cfg, start, err)
	}
	if res.Repaired {
		g.metrics.IncRepair(cfg.Name)
		logging.FromContext(ctx, g.logger).Info("detection document repaired", "provider", cfg.Name)
	}

	g.finish(ctx, provider.TaskDetect, cfg, start, nil)
	return res, nil
}

// call builds and sends the request for task, returning the raw upstream
// body.
func (g *Gateway) call(ctx context.Context, task provider.Task, input string) (string, error) {
	cfg, ok := g.routes[task]
	if !ok {
		return "", &Error{Kind: KindTransport, Message: unavailableMessage(task), Detail: "no provider configured"}
	}

	out, err := provider.Build(cfg, task, input)
	if err != nil {
		return "", &Error{Kind: KindTransport, Message: unavailableMessage(task), Detail: "could not build upstream request", Err: err}
	}

	sendStart := time.Now()
	raw, err := g.sender.Send(ctx, out, cfg.Timeout)
	g.metrics.ObserveUpstream(cfg.Name, string(cfg.Kind), time.Since(sendStart))
	if err != nil {
		return "", err
	}
	return raw, nil
}

func (g *Gateway) startSpan(ctx context.Context, task provider.Task, cfg provider.Config) (context.Context, trace.Span) {
	return g.tracer.Start(ctx, "gateway."+string(task), trace.WithAttributes(
		attribute.String("gateway.task", string(task)),
		attribute.String("provider.name", cfg.Name),
		attribute.String("provider.kind", string(cfg.Kind)),
	))
}

func (g *Gateway) fail(ctx context.Context, span trace.Span, task provider.Task, cfg provider.Config, start time.Time, err error) *Error {
	ge := classify(task, err)
	span.RecordError(err)
	span.SetStatus(codes.Error, ge.Kind.String())
	g.finish(ctx, task, cfg, start, ge)
	return ge
}

// finish records metrics and the single log line of a request.
func (g *Gateway) finish(ctx context.Context, task provider.Task, cfg provider.Config, start time.Time, err error) {
	elapsed := time.Since(start)
	logger := logging.FromContext(ctx, g.logger).With(
		"task", string(task),
		"provider", cfg.Name,
		"duration", elapsed,
	)

	if err == nil {
		g.metrics.ObserveRequest(string(task), cfg.Name, "ok", elapsed)
		logger.Info("request completed")
		return
	}

	ge := classify(task, err)
	g.metrics.ObserveRequest(string(task), cfg.Name, ge.Kind.String(), elapsed)
	if ge.Kind == KindValidation {
		logger.Info("request rejected", "reason", ge.Message)
		return
	}
	logger.Warn("request failed", "kind", ge.Kind.String(), "error", ge.Err)
}

// stringField reads an optional string field from a decoded JSON body.
func stringField(body map[string]any, key string) (*string, error) {
	v, ok := body[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, validationError(fmt.Sprintf("Field %s must be a string", key))
	}
	return &s, nil
}
