package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nadzzz/domus/internal/config"
	"github.com/nadzzz/domus/internal/device"
	"github.com/nadzzz/domus/internal/fallback"
	"github.com/nadzzz/domus/internal/fallback/ollama"
	"github.com/nadzzz/domus/internal/fallback/openai"
	"github.com/nadzzz/domus/internal/health"
	"github.com/nadzzz/domus/internal/nlp/normalize"
	"github.com/nadzzz/domus/internal/pipeline"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "domus",
	Short: "Rule-based home-automation command interpreter",
	Long: `Domus turns short Spanish or English utterances such as
"enciende la luz del comedor" into an intent and a device key. Rules answer
first; a language model is consulted only for what they cannot settle.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./domus.yaml, ./configs/domus.yaml or /etc/domus/domus.yaml)")

	rootCmd.AddCommand(serveCmd, interpretCmd, devicesCmd, versionCmd)
}

// quietLogging sends warnings and errors to w so command output on stdout
// stays machine readable.
func quietLogging(w io.Writer) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn})))
}

// newFallback builds the configured fallback client, or nil when disabled.
func newFallback(cfg config.FallbackConfig, norm *normalize.Normalizer) *fallback.Client {
	switch cfg.Backend {
	case "ollama":
		slog.Info("using ollama fallback", "url", cfg.Ollama.URL, "model", cfg.Ollama.Model)
		return fallback.New(ollama.New(cfg.Ollama), norm)
	case "openai":
		slog.Info("using openai fallback", "base_url", cfg.OpenAI.BaseURL, "model", cfg.OpenAI.Model)
		return fallback.New(openai.New(cfg.OpenAI), norm)
	default:
		slog.Info("fallback disabled")
		return nil
	}
}

// newMonitor wraps fb in an availability monitor. A nil fb yields a
// disabled monitor.
func newMonitor(fb *fallback.Client, cfg config.FallbackConfig) *health.Monitor {
	if fb == nil {
		return health.NewMonitor(nil, cfg.PingTimeout)
	}
	return health.NewMonitor(fb, cfg.PingTimeout)
}

// pipelineOptions fills the fallback related options, leaving them unset
// when fb is nil.
func pipelineOptions(opts pipeline.Options, fb *fallback.Client, monitor *health.Monitor, cfg config.FallbackConfig) pipeline.Options {
	if fb == nil {
		return opts
	}
	opts.Fallback = fb
	opts.Availability = monitor
	opts.FallbackTimeout = cfg.Timeout
	return opts
}

// openSource opens the configured device source. The returned close
// function is never nil.
func openSource(ctx context.Context, cfg config.DevicesConfig) (device.Source, func() error, error) {
	if cfg.Source != "database" {
		return device.NewFileSource(cfg.File), func() error { return nil }, nil
	}
	repo, err := openRepository(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return repo, repo.Close, nil
}

func openRepository(ctx context.Context, cfg config.DatabaseConfig) (*device.Repository, error) {
	repo, err := device.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("migrating device schema: %w", err)
	}
	return repo, nil
}
