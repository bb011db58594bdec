package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nadzzz/domus/internal/cache"
	"github.com/nadzzz/domus/internal/config"
	"github.com/nadzzz/domus/internal/device"
	"github.com/nadzzz/domus/internal/dispatch"
	"github.com/nadzzz/domus/internal/executor"
	"github.com/nadzzz/domus/internal/health"
	"github.com/nadzzz/domus/internal/metrics"
	"github.com/nadzzz/domus/internal/nlp/normalize"
	"github.com/nadzzz/domus/internal/pipeline"
	"github.com/nadzzz/domus/internal/transport"
	grpctransport "github.com/nadzzz/domus/internal/transport/grpc"
	httptransport "github.com/nadzzz/domus/internal/transport/http"
)

const janitorInterval = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interpretation daemon",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logCloser := config.SetupLogging(cfg.Logging)
	defer logCloser.Close()
	slog.Info("domus starting", "version", version)

	// Root context with signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var transports []transport.Transport
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port))
	}

	norm := normalize.New(cfg.NLP.Options())
	fb := newFallback(cfg.Fallback, norm)
	monitor := newMonitor(fb, cfg.Fallback)
	monitor.OnChange(func(ok bool) { metrics.FallbackAvailable.Set(metrics.Bool(ok)) })

	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port, monitor))
	}
	if len(transports) == 0 {
		return fmt.Errorf("no transports enabled, enable http or grpc in config")
	}

	c, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("creating cache: %w", err)
	}
	if c != nil {
		defer c.Close()
	}

	source, closeSource, err := openSource(ctx, cfg.Devices)
	if err != nil {
		return fmt.Errorf("opening device source: %w", err)
	}
	defer closeSource()

	p := pipeline.New(pipelineOptions(pipeline.Options{
		Normalizer: norm,
		Cache:      c,
		Source:     source,
		Executor:   executor.New(cfg.Executor),
	}, fb, monitor, cfg.Fallback))

	n, err := p.ReloadFromSource(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}
	slog.Info("devices loaded", "source", cfg.Devices.Source, "count", n)

	dispatcher := dispatch.New(p, monitor, version)
	if repo, ok := source.(*device.Repository); ok {
		dispatcher.WithStore(repo)
	}
	healthServer := health.New(cfg.Server.HealthPort, monitor)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return healthServer.ListenAndServe(gctx) })

	if monitor.Enabled() {
		g.Go(func() error { return monitor.Run(gctx, cfg.Fallback.HealthInterval) })
	}

	if lru, ok := c.(*cache.LRU); ok {
		g.Go(func() error { return lru.Run(gctx, janitorInterval) })
	}

	if fs, ok := source.(*device.FileSource); ok && cfg.Devices.Watch {
		w, err := device.NewWatcher(fs.Path(), cfg.Devices.Debounce, func(ctx context.Context) {
			if _, err := p.ReloadFromSource(ctx); err != nil {
				slog.Error("device reload failed, keeping previous snapshot", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("watching devices file: %w", err)
		}
		g.Go(func() error { return w.Run(gctx) })
	}

	for _, t := range transports {
		g.Go(func() error {
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(gctx, dispatcher); err != nil {
				return fmt.Errorf("%s transport: %w", t.Name(), err)
			}
			return nil
		})
	}

	healthServer.SetReady(true)
	slog.Info("domus ready",
		"transports", len(transports),
		"devices", n,
		"fallback", monitor.Status(),
		"health_port", cfg.Server.HealthPort)

	<-gctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	err = g.Wait()
	slog.Info("domus stopped")
	return err
}
