package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"raffleworker/internal/api"
	"raffleworker/internal/config"
	"raffleworker/internal/logger"
	"raffleworker/internal/metrics"
	"raffleworker/internal/retry"
	"raffleworker/internal/storage"
	"raffleworker/internal/tracker"
	"raffleworker/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const usage = `usage: raffles [flags] [fetch|serve]

  fetch  build the raffle view of -user once and print it as JSON (default)
  serve  serve the raffle view over HTTP

flags:
`

type options struct {
	configFile string
	oracle     string
	user       string
	codeHash   string
	export     string
	httpAddr   string
	logLevel   string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "raffles: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var opts options

	flags := flag.NewFlagSet("raffles", flag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprint(flags.Output(), usage)
		flags.PrintDefaults()
	}
	flags.StringVar(&opts.configFile, "config", "", "Path to configuration file (YAML)")
	flags.StringVar(&opts.oracle, "oracle", "", "Oracle account address")
	flags.StringVar(&opts.user, "user", "", "User account address (fetch)")
	flags.StringVar(&opts.codeHash, "code-hash", "", "Raffle contract code hash (hex)")
	flags.StringVar(&opts.export, "export", "", "Sqlite database receiving built aggregates")
	flags.StringVar(&opts.httpAddr, "http", "", "HTTP listen address (serve)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	mode := "fetch"
	if flags.NArg() > 0 {
		mode = flags.Arg(0)
	}
	if mode != "fetch" && mode != "serve" {
		flags.Usage()
		return fmt.Errorf("unknown command %q", mode)
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	applyFlags(cfg, opts)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logger.Initialize(logger.Configuration{
		LogFile:   cfg.Log.File,
		ErrorFile: cfg.Log.ErrorFile,
		Level:     cfg.Log.Level,
		Console:   cfg.Log.Console,
	}); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	trackerInstance, err := newTracker(cfg, metrics.NewMetrics(registry, "raffles"))
	if err != nil {
		return err
	}

	var exporter storage.Storage
	if cfg.Export.Database != "" {
		sqliteStorage, err := storage.NewSqliteStorage(cfg.Export.Database)
		if err != nil {
			return err
		}
		defer sqliteStorage.Close()
		exporter = sqliteStorage
	}

	w := worker.NewWorker(trackerInstance)
	defer w.Close()

	switch mode {
	case "serve":
		return serve(ctx, cfg, trackerInstance, w, exporter, registry)
	default:
		return fetch(ctx, cfg, opts.user, w, exporter, stdout)
	}
}

func applyFlags(cfg *config.Config, opts options) {
	if opts.oracle != "" {
		cfg.Raffle.OracleAddress = opts.oracle
	}
	if opts.codeHash != "" {
		cfg.Raffle.CodeHash = opts.codeHash
	}
	if opts.export != "" {
		cfg.Export.Database = opts.export
	}
	if opts.httpAddr != "" {
		cfg.HTTP.Address = opts.httpAddr
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
}

func newTracker(cfg *config.Config, m *metrics.Metrics) (*tracker.Tracker, error) {
	client, err := tracker.NewTonapiClient(cfg.Tonapi.URL, cfg.Tonapi.Token)
	if err != nil {
		return nil, fmt.Errorf("create tonapi client: %w", err)
	}

	client = tracker.NewThrottledClient(client, cfg.Tonapi.RequestsPerSecond, 1)

	return tracker.NewTracker(client, cfg.Raffle.CodeHash,
		tracker.WithRetryPolicy(retry.RateLimitPolicy(cfg.Tonapi.RateLimitBackoff)),
		tracker.WithPageLimit(cfg.Raffle.TracePageLimit),
		tracker.WithMetrics(m),
	), nil
}

func fetch(ctx context.Context, cfg *config.Config, userAddress string, w *worker.Worker, exporter storage.Storage, stdout io.Writer) error {
	if userAddress == "" {
		return errors.New("fetch: -user is required")
	}

	data, err := w.Submit(ctx, cfg.Raffle.OracleAddress, userAddress).Wait(ctx)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	if exporter != nil {
		exportID, err := exporter.ExportBlockchainData(ctx, storage.Snapshot{
			OracleAddress: cfg.Raffle.OracleAddress,
			UserAddress:   userAddress,
			Data:          data,
		})
		if err != nil {
			return err
		}
		logger.Info("fetch: exported", zap.Int64("export id", exportID))
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func serve(ctx context.Context, cfg *config.Config, trackerInstance *tracker.Tracker, w *worker.Worker, exporter storage.Storage, registry *prometheus.Registry) error {
	if err := trackerInstance.VerifyOracleAccount(ctx, cfg.Raffle.OracleAddress); err != nil {
		return err
	}

	serverOptions := []api.Option{api.WithGatherer(registry)}
	if exporter != nil {
		serverOptions = append(serverOptions, api.WithExporter(exporter))
	}
	server := api.NewServer(cfg.HTTP.Address, logger.Named("api"), w, cfg.Raffle.OracleAddress, serverOptions...)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		return server.Stop(context.Background())
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
