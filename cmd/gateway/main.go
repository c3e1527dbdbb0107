package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/SanketP2003/Ai-Content-Detection/pkg/config"
	"github.com/SanketP2003/Ai-Content-Detection/pkg/gateway"
	"github.com/SanketP2003/Ai-Content-Detection/pkg/logging"
	"github.com/SanketP2003/Ai-Content-Detection/pkg/provider"
	"github.com/SanketP2003/Ai-Content-Detection/pkg/server"
	"github.com/SanketP2003/Ai-Content-Detection/pkg/telemetry"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "AI content gateway",
	Long: `An HTTP gateway that forwards chat and AI-content detection requests
to a configured LLM provider and returns a normalized answer.

Use 'gateway serve' to run the HTTP API, or 'gateway chat' and
'gateway detect' for one-shot calls through the same pipeline.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
		return nil
	},
}

// --- serve command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve POST /api/chat and POST /api/detect/bulk-ai, plus /healthz and
the Prometheus metrics endpoint. Stops gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.ListenAddr = listen
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	routes, err := cfg.TaskRoutes()
	if err != nil {
		return fmt.Errorf("resolving providers: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Environment: cfg.Telemetry.Environment,
		Insecure:    cfg.Telemetry.OTLPInsecure,
		Headers:     cfg.Telemetry.OTLPHeaders,
		Routes:      routes,
	})
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	var metrics *telemetry.Metrics
	if cfg.Telemetry.MetricsEnabled {
		metrics = telemetry.NewMetrics()
	}

	gw, err := gateway.New(routes, provider.NewClient(),
		gateway.WithLogger(logger),
		gateway.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithAllowedOrigins(cfg.CORS.AllowedOrigins...),
	}
	if metrics != nil {
		opts = append(opts, server.WithMetrics(metrics, cfg.Telemetry.MetricsPath))
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(gw, opts...),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Longest provider timeout plus headroom.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening",
			"addr", cfg.ListenAddr,
			"chat_provider", cfg.Routes.Chat,
			"detect_provider", cfg.Routes.Detect,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving HTTP: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	return nil
}

// --- config command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect gateway configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config file",
	Long: `Check the gateway configuration for errors.

Validates YAML syntax, provider kinds, task routing and that the API
keys of routed providers can be resolved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if _, err := cfg.TaskRoutes(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
		cfgPath, _ := cmd.Flags().GetString("config")
		fmt.Fprintf(cmd.OutOrStdout(), "Config %q is valid.\n", cfgPath)
		return nil
	},
}

// --- providers command ---

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, name := range cfg.ProviderNames() {
			p := cfg.Providers[name]
			var serves []string
			if cfg.Routes.Chat == name {
				serves = append(serves, "chat")
			}
			if cfg.Routes.Detect == name {
				serves = append(serves, "detect")
			}
			route := "-"
			if len(serves) > 0 {
				route = strings.Join(serves, ",")
			}
			fmt.Fprintf(out, "  %-16s %-17s %-24s %4ds  %s\n", name, p.Kind, p.Model, p.TimeoutSeconds, route)
		}
		return nil
	},
}

// --- chat command ---

var chatCmd = &cobra.Command{
	Use:   "chat <prompt>",
	Short: "Send one chat prompt",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		gw, err := newGateway(cfg)
		if err != nil {
			return err
		}
		prompt := strings.Join(args, " ")
		res, err := gw.Chat(cmd.Context(), gateway.ChatRequest{Prompt: &prompt})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Text)
		return nil
	},
}

// --- detect command ---

var detectCmd = &cobra.Command{
	Use:   "detect [file]",
	Short: "Analyze text for AI authorship",
	Long: `Send text for AI-content detection and print the analysis as JSON.

Reads the named file, or standard input when no file (or "-") is given.
The text must contain at least 10 non-empty lines.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		gw, err := newGateway(cfg)
		if err != nil {
			return err
		}
		res, err := gw.Detect(cmd.Context(), gateway.DetectionRequest{Text: &text})
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), server.MaxBodyBytes))
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return string(data), nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
}

// newGateway builds a one-shot gateway for the chat and detect commands.
func newGateway(cfg *config.Config) (*gateway.Gateway, error) {
	routes, err := cfg.TaskRoutes()
	if err != nil {
		return nil, fmt.Errorf("resolving providers: %w", err)
	}
	return gateway.New(routes, provider.NewClient(), gateway.WithLogger(newLogger(cfg)))
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "gateway.yaml", "Path to config file")
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to a .env file loaded before the config")

	serveCmd.Flags().StringP("listen", "l", "", "Override listen_addr")

	configCmd.AddCommand(configValidateCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(detectCmd)
}
