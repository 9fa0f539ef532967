// Command repostream wires the queue, streaming producer, filesystem
// scanner, and a demo plugin together, serves Prometheus metrics, and shuts
// down gracefully on SIGINT/SIGTERM. Grounded on
// adred-codev-ws_poc/ws/main.go's flag/signal/automaxprocs wiring.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rs/zerolog"

	_ "go.uber.org/automaxprocs"

	"github.com/repostream/queuecore/config"
	"github.com/repostream/queuecore/internal/hostres"
	"github.com/repostream/queuecore/internal/logging"
	"github.com/repostream/queuecore/internal/metrics"
	"github.com/repostream/queuecore/notify"
	"github.com/repostream/queuecore/plugin"
	"github.com/repostream/queuecore/producer"
	"github.com/repostream/queuecore/queue"
	"github.com/repostream/queuecore/scanner"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging (overrides REPOSTREAM_LOG_LEVEL)")
	root := flag.String("root", "", "filesystem root to scan (overrides REPOSTREAM_ROOT)")
	flag.Parse()

	startupLogger := logging.New(logging.Config{Level: logging.LevelInfo, Format: logging.FormatConsole, ServiceName: "repostream"})

	cfg, err := config.Load(nil)
	if err != nil {
		startupLogger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *debug {
		cfg.LogLevel = logging.LevelDebug
	}
	if *root != "" {
		cfg.Root = *root
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, ServiceName: "repostream"})
	logger.Info().Str("scan_id", cfg.ScanID).Str("root", cfg.Root).Msg("starting repostream")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := notify.NewBus(logger)
	q := queue.NewMultiConsumerQueue(cfg.ScanID, bus, cfg.Queue, logger)

	reg := prometheus.NewRegistry()
	qMetrics := metrics.NewQueueMetrics(reg, cfg.ScanID)
	observer := metrics.NewObserver(qMetrics)

	sampler := hostres.New(5*time.Second, logger)
	go sampler.Run(ctx)

	prod := producer.New(q, cfg.Producer, sampler, observer, logger)

	counter := plugin.NewCounter("demo-counter")
	consumerHandle, err := q.RegisterConsumer(counter.Name(), 0)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to register demo consumer")
	}

	go runDemoConsumer(ctx, consumerHandle, counter, logger)
	go runMetricsServer(ctx, cfg.MetricsAddr, reg, logger)
	go runMetricsObserver(ctx, q, observer)

	q.Start()

	upstream := scanner.Walk(ctx, cfg.ScanID, cfg.Root)
	if err := prod.Run(ctx, upstream); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("streaming producer exited with error")
	}

	stats := q.GetStatistics()
	logger.Info().
		Uint64("total_messages", stats.TotalMessages).
		Uint64("enqueued", prod.EnqueuedCount()).
		Uint64("dropped", prod.DroppedCount()).
		Msg("scan complete")
	bus.Publish(notify.NewScanComplete(cfg.ScanID, stats.TotalMessages))

	<-ctx.Done()
	q.Stop()
	logger.Info().Msg("shutdown complete")
}

func runDemoConsumer(ctx context.Context, h *queue.ConsumerHandle, p plugin.Plugin, logger zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		batch := h.ReadBatch(64)
		if len(batch) == 0 {
			h.WaitForMessages(200 * time.Millisecond)
			continue
		}
		var lastSeq uint64
		for _, sm := range batch {
			if err := p.Accept(ctx, &sm); err != nil {
				logger.Error().Err(err).Msg("plugin rejected message")
				continue
			}
			lastSeq = sm.Header().Sequence
		}
		if err := h.Acknowledge(lastSeq); err != nil {
			logger.Error().Err(err).Msg("failed to acknowledge batch")
		}
	}
}

func runMetricsServer(ctx context.Context, addr string, reg *prometheus.Registry, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server failed")
	}
}

func runMetricsObserver(ctx context.Context, q *queue.MultiConsumerQueue, obs *metrics.Observer) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := q.GetStatistics()
			mem := q.GetMemoryStats()
			backoff := q.GetBackoffMetrics()
			lags := q.GetAllConsumerLags()
			obs.Observe(stats, mem, backoff, lags, q.GetDropCount())
			runs, collected := q.GetGCStats()
			obs.ObserveGC(runs, collected)
		}
	}
}
