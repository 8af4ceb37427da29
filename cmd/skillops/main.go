// Package main provides the skillops binary entry point.
// SkillOps is an adaptive incident trainer: it generates operational
// incidents tailored to the learner's history, serves graduated hints at
// a cost, scores free-form resolutions, and schedules weak topics for
// spaced-repetition review.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	// Register LLM providers via init()
	_ "github.com/M-Boiguille/SkillOps-sub000/llm/providers"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/M-Boiguille/SkillOps-sub000/chaos"
	"github.com/M-Boiguille/SkillOps-sub000/config"
	"github.com/M-Boiguille/SkillOps-sub000/llm"
	"github.com/M-Boiguille/SkillOps-sub000/metrics"
	"github.com/M-Boiguille/SkillOps-sub000/store"
	"github.com/M-Boiguille/SkillOps-sub000/training"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "skillops"
)

// Exit codes: 0 success, 1 generation/scoring error, 2 invalid
// precondition or panic.
const (
	exitOK           = 0
	exitError        = 1
	exitPrecondition = 2
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(exitPrecondition)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps engine errors onto the CLI contract. Precondition
// violations are the caller's mistake; everything else is an operation
// failure.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, training.ErrOutOfSequence),
		errors.Is(err, training.ErrEmptyResolution),
		errors.Is(err, training.ErrIncidentClosed),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrAlreadyResolved),
		errors.Is(err, store.ErrConflict):
		return exitPrecondition
	default:
		return exitError
	}
}

func rootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Adaptive incident trainer",
		Long: `SkillOps trains incident response on your own stack.

It generates realistic operational incidents biased toward the systems
you score poorly on, serves three graduated hint levels at a point cost,
grades your resolution with generated validation questions, and brings
weak topics back on a spaced-repetition schedule.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (empty = off)")

	cmd.AddCommand(
		generateCmd(opts),
		hintCmd(opts),
		resolveCmd(opts),
		dueTodayCmd(opts),
		versionCmd(),
	)

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}

type rootOptions struct {
	configPath  string
	logLevel    string
	metricsAddr string
}

// app bundles the wired engine for one command invocation.
type app struct {
	cfg      *config.Config
	store    *store.Store
	svc      training.Service
	recorder *metrics.Recorder
	reader   *chaos.Reader
	retry    llm.RetryConfig
	logger   *slog.Logger
}

// setup configures logging, loads configuration, and wires the engine.
// Callers must Close the returned app.
func setup(opts *rootOptions) (*app, error) {
	level := slog.LevelInfo
	switch strings.ToLower(opts.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var cfg *config.Config
	var err error
	if opts.configPath != "" {
		cfg, err = config.LoadFromFile(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	} else {
		cfg, err = config.NewLoader(logger).Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	client := llm.NewClient(llm.Endpoint{
		Provider: cfg.Model.Provider,
		URL:      cfg.Model.Endpoint,
		Model:    cfg.Model.Name,
	}, llm.WithLogger(logger))

	svc := training.NewHTTPService(client,
		training.WithTemperature(cfg.Model.Temperature),
		training.WithMaxTokens(cfg.Model.MaxTokens),
		training.WithServiceLogger(logger))

	a := &app{
		cfg:   cfg,
		store: st,
		svc:   svc,
		retry: llm.RetryConfig{
			MaxAttempts:       cfg.Retry.MaxAttempts,
			AttemptTimeout:    cfg.Retry.AttemptTimeout,
			BackoffBase:       cfg.Retry.BackoffBase,
			BackoffMultiplier: 2.0,
			MaxBackoff:        cfg.Retry.MaxBackoff,
		},
		logger: logger,
	}

	if cfg.Chaos.LogDir != "" {
		var readerOpts []chaos.ReaderOption
		if cfg.Chaos.Pattern != "" {
			readerOpts = append(readerOpts, chaos.WithPattern(cfg.Chaos.Pattern))
		}
		a.reader = chaos.NewReader(cfg.Chaos.LogDir, readerOpts...)
	}

	if opts.metricsAddr != "" {
		a.recorder = metrics.NewRecorder()
		reg := prometheus.NewRegistry()
		if err := a.recorder.Register(reg); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server := &http.Server{
			Addr:              opts.metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("Metrics server stopped", "error", err)
			}
		}()
		logger.Info("Serving metrics", "addr", opts.metricsAddr)
	}

	return a, nil
}

// Close releases the app's resources.
func (a *app) Close() error {
	return a.store.Close()
}

// aggregator builds the context aggregator with the optional chaos log.
func (a *app) aggregator() *training.Aggregator {
	aggOpts := []training.AggregatorOption{
		training.WithAggregatorLogger(a.logger),
	}
	if a.reader != nil {
		aggOpts = append(aggOpts, training.WithChaosReader(a.reader))
	}
	return training.NewAggregator(a.store, aggOpts...)
}
