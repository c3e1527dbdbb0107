package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SanketP2003/Ai-Content-Detection/pkg/provider"
)

// Config holds the top-level gateway configuration.
type Config struct {
	ListenAddr string                    `yaml:"listen_addr"`
	LogLevel   string                    `yaml:"log_level"`
	LogFormat  string                    `yaml:"log_format"`
	CORS       CORSConfig                `yaml:"cors"`
	Routes     RoutesConfig              `yaml:"routes"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Telemetry  TelemetryConfig           `yaml:"telemetry"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RoutesConfig names the provider entry serving each task.
type RoutesConfig struct {
	Chat   string `yaml:"chat"`
	Detect string `yaml:"detect"`
}

// ProviderConfig holds configuration for a single LLM provider.
type ProviderConfig struct {
	Kind           string  `yaml:"kind"`
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// TelemetryConfig controls metrics exposition and trace export. An empty
// OTLPEndpoint disables tracing.
type TelemetryConfig struct {
	MetricsEnabled bool              `yaml:"metrics_enabled"`
	MetricsPath    string            `yaml:"metrics_path"`
	OTLPEndpoint   string            `yaml:"otlp_endpoint"`
	OTLPInsecure   bool              `yaml:"otlp_insecure"`
	OTLPHeaders    map[string]string `yaml:"otlp_headers"`
	ServiceName    string            `yaml:"service_name"`
	Environment    string            `yaml:"environment"`
}

const localGenerateURL = "http://localhost:11434/api/generate"

// Default returns a Config populated with sensible defaults: chat and
// detection both served by a local model server.
func Default() *Config {
	return &Config{
		ListenAddr: ":8080",
		LogLevel:   "info",
		LogFormat:  "text",
		CORS: CORSConfig{
			AllowedOrigins: []string{"https://ai-content-detection-fdpu.onrender.com"},
		},
		Routes: RoutesConfig{
			Chat:   "ollama",
			Detect: "ollama-detect",
		},
		Providers: map[string]ProviderConfig{
			"ollama": {
				Kind:           string(provider.KindLocal),
				BaseURL:        localGenerateURL,
				Model:          "mistral:instruct",
				Temperature:    0.7,
				MaxTokens:      4096,
				TimeoutSeconds: 10,
			},
			"ollama-detect": {
				Kind:           string(provider.KindLocal),
				BaseURL:        localGenerateURL,
				Model:          "mistral:instruct",
				Temperature:    0.1,
				MaxTokens:      4096,
				TimeoutSeconds: 30,
			},
			"openai": {
				Kind:           string(provider.KindHostedChat),
				BaseURL:        "https://api.openai.com/v1/chat/completions",
				APIKeyEnv:      "OPENAI_API_KEY",
				Model:          "gpt-4o-mini",
				Temperature:    0.7,
				MaxTokens:      1024,
				TimeoutSeconds: 15,
			},
			"gemini": {
				Kind:           string(provider.KindGemini),
				BaseURL:        "https://generativelanguage.googleapis.com/v1beta/models/{model}:generateContent",
				APIKeyEnv:      "GEMINI_API_KEY",
				Model:          "gemini-1.5-flash",
				TimeoutSeconds: 60,
			},
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled: true,
			MetricsPath:    "/metrics",
			ServiceName:    "ai-content-gateway",
		},
	}
}

// Load reads and parses a YAML config file at the given path. A provider
// entry in the file replaces the default entry of the same name.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault loads config from the given path. If the file does not exist,
// it returns the default configuration. Other errors (e.g. parse failures)
// are still returned.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// ResolveAPIKey returns the API key for the named provider. An inline api_key
// wins; otherwise the variable named by api_key_env is read. Providers that
// need no key resolve to "".
func (c *Config) ResolveAPIKey(providerName string) (string, error) {
	p, ok := c.Providers[providerName]
	if !ok {
		return "", fmt.Errorf("provider %q not found in config", providerName)
	}
	if p.APIKey != "" {
		return p.APIKey, nil
	}
	if p.APIKeyEnv == "" {
		if needsKey(provider.Kind(p.Kind)) {
			return "", fmt.Errorf("provider %q has no api_key or api_key_env configured", providerName)
		}
		return "", nil
	}
	key := os.Getenv(p.APIKeyEnv)
	if key == "" && needsKey(provider.Kind(p.Kind)) {
		return "", fmt.Errorf("environment variable %s for provider %q is not set", p.APIKeyEnv, providerName)
	}
	return key, nil
}

// Validate checks the config for required fields and returns a descriptive
// error if any are missing or invalid. API keys are not checked here; see
// TaskRoutes.
func (c *Config) Validate() error {
	var errs []error

	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr must not be empty"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if c.Telemetry.MetricsEnabled && !strings.HasPrefix(c.Telemetry.MetricsPath, "/") {
		errs = append(errs, fmt.Errorf("telemetry.metrics_path must start with /, got %q", c.Telemetry.MetricsPath))
	}

	for _, name := range c.ProviderNames() {
		p := c.Providers[name]
		kind, err := provider.ParseKind(p.Kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("provider %q: %w", name, err))
		}
		if p.BaseURL == "" {
			errs = append(errs, fmt.Errorf("provider %q: base_url is required", name))
		}
		if p.Model == "" && kind != provider.KindHostedDetection {
			errs = append(errs, fmt.Errorf("provider %q: model is required", name))
		}
		if p.TimeoutSeconds <= 0 {
			errs = append(errs, fmt.Errorf("provider %q: timeout_seconds must be > 0, got %d", name, p.TimeoutSeconds))
		}
		if p.MaxTokens < 0 {
			errs = append(errs, fmt.Errorf("provider %q: max_tokens must be >= 0, got %d", name, p.MaxTokens))
		}
	}

	errs = append(errs, c.validateRoute(provider.TaskChat, c.Routes.Chat)...)
	errs = append(errs, c.validateRoute(provider.TaskDetect, c.Routes.Detect)...)

	return errors.Join(errs...)
}

func (c *Config) validateRoute(task provider.Task, name string) []error {
	if name == "" {
		return []error{fmt.Errorf("routes.%s is required", task)}
	}
	p, ok := c.Providers[name]
	if !ok {
		return []error{fmt.Errorf("routes.%s: provider %q not found", task, name)}
	}
	kind, err := provider.ParseKind(p.Kind)
	if err != nil {
		// Already reported against the provider entry.
		return nil
	}
	if !kind.Supports(task) {
		return []error{fmt.Errorf("routes.%s: provider %q of kind %s cannot serve %s", task, name, kind, task)}
	}
	return nil
}

// ProviderNames returns the configured provider names in sorted order.
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderConfig converts the named entry into the value the gateway uses,
// resolving its API key.
func (c *Config) ProviderConfig(name string) (provider.Config, error) {
	p, ok := c.Providers[name]
	if !ok {
		return provider.Config{}, fmt.Errorf("provider %q not found in config", name)
	}
	kind, err := provider.ParseKind(p.Kind)
	if err != nil {
		return provider.Config{}, fmt.Errorf("provider %q: %w", name, err)
	}
	key, err := c.ResolveAPIKey(name)
	if err != nil {
		return provider.Config{}, err
	}
	return provider.Config{
		Name:        name,
		Kind:        kind,
		BaseURL:     p.BaseURL,
		APIKey:      key,
		Model:       p.Model,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		Timeout:     time.Duration(p.TimeoutSeconds) * time.Second,
	}, nil
}

// TaskRoutes validates the config and returns the provider serving each
// task.
func (c *Config) TaskRoutes() (map[provider.Task]provider.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	routes := make(map[provider.Task]provider.Config, 2)
	for task, name := range map[provider.Task]string{
		provider.TaskChat:   c.Routes.Chat,
		provider.TaskDetect: c.Routes.Detect,
	} {
		pc, err := c.ProviderConfig(name)
		if err != nil {
			return nil, fmt.Errorf("routes.%s: %w", task, err)
		}
		routes[task] = pc
	}
	return routes, nil
}

func needsKey(kind provider.Kind) bool {
	return kind != provider.KindLocal
}
