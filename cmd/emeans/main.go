package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/yyyoichi/emeans"
	"github.com/yyyoichi/emeans/internal/config"
	"github.com/yyyoichi/emeans/internal/dataset"
	"github.com/yyyoichi/emeans/internal/evolution"
	"github.com/yyyoichi/emeans/internal/logging"
	"github.com/yyyoichi/emeans/internal/metrics"
	"github.com/yyyoichi/emeans/internal/report"
	"github.com/yyyoichi/emeans/internal/results"
	"github.com/yyyoichi/emeans/internal/snapshot"
	"github.com/yyyoichi/emeans/internal/store"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	sigCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	var stop evolution.StopFlag
	stop.ContextStop(sigCtx)

	code := run(context.Background(), os.Args[1:], os.Stderr, &stop)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer, stop evolution.StopSignal) int {
	fs := flag.NewFlagSet("emeans", flag.ContinueOnError)
	fs.SetOutput(stderr)
	debug := fs.Int("debug", 0, "debug code: 1 config, 2 data, 3 cluster, 4 bounds, 5 centroids, 6 dunn, 7 crossover, 8 mutate, 10 probability")
	verbose := fs.Bool("v", false, "verbose progress output")
	configName := fs.String("config", "", "configuration file; a bare name is looked up in "+config.DefaultDir)
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return exitUsage
	}
	if *debug != 0 && logging.PhaseForCode(*debug) == "" {
		fmt.Fprintf(stderr, "unknown debug code %d\n", *debug)
		return exitUsage
	}

	logger := slog.New(logging.NewHandler(stderr, logging.Options{
		Verbose:    *verbose,
		DebugPhase: logging.PhaseForCode(*debug),
	}))
	errLog := log.New(stderr, "", log.LstdFlags)

	path := config.Resolve(*configName)
	cfg, err := config.Load(path)
	if err != nil {
		errLog.Printf("Failed to load configuration: %v", err)
		return exitError
	}
	logger.Debug("configuration", logging.Phase(logging.PhaseConfig), "path", path, "config", cfg)

	if err := execute(ctx, cfg, logger, stop, *metricsAddr); err != nil {
		errLog.Printf("Run failed: %v", err)
		return exitError
	}
	return exitOK
}

func execute(ctx context.Context, cfg *config.Config, logger *slog.Logger, stop evolution.StopSignal, metricsAddr string) error {
	var loadOpts []dataset.Option
	if cfg.CacheDir != "" {
		loadOpts = append(loadOpts, dataset.WithCacheDir(cfg.CacheDir))
	}
	data, err := dataset.Load(ctx, cfg.DataFile, cfg.Rows, cfg.Cols, loadOpts...)
	if err != nil {
		return err
	}
	logger.Info("dataset loaded", logging.Phase(logging.PhaseData), "path", cfg.DataFile, "rows", cfg.Rows, "cols", cfg.Cols)

	policy, err := evolution.ParseDegeneratePolicy(cfg.Degenerate)
	if err != nil {
		return err
	}

	opts := []emeans.Option{
		emeans.WithClusters(cfg.Clusters),
		emeans.WithPopulation(cfg.Population),
		emeans.WithGenerations(cfg.MaxGenerations),
		emeans.WithMaxIterations(cfg.MaxIterations),
		emeans.WithRates(cfg.Crossover, cfg.Mutation),
		emeans.WithTrials(cfg.Trials),
		emeans.WithParallelism(cfg.Parallelism),
		emeans.WithSeed(cfg.Seed),
		emeans.WithDegeneratePolicy(policy),
		emeans.WithLogger(logger),
		emeans.WithStopSignal(stop),
	}

	var writers results.Multi
	r := cfg.Results
	if r.Fitness != "" || r.Centroids != "" || r.Clusters != "" {
		writers = append(writers, results.NewFileWriter(results.Paths{
			Fitness:   r.Fitness,
			Centroids: r.Centroids,
			Clusters:  r.Clusters,
		}, data))
	}

	var (
		db    *store.DB
		runID string
	)
	if r.Database != "" {
		if err := os.MkdirAll(filepath.Dir(r.Database), 0o755); err != nil {
			return err
		}
		db, err = store.Open(r.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		runID, err = db.CreateRun(ctx, store.Run{
			DataFile:       cfg.DataFile,
			Rows:           cfg.Rows,
			Cols:           cfg.Cols,
			Clusters:       cfg.Clusters,
			Population:     cfg.Population,
			MaxGenerations: cfg.MaxGenerations,
			Mutation:       cfg.Mutation,
			Crossover:      cfg.Crossover,
			Seed:           cfg.Seed,
		})
		if err != nil {
			return err
		}
		rec := store.NewRecorder(db, runID, snapshot.WithGolay())
		writers = append(writers, rec)
		logger.Info("recording run", logging.Phase(logging.PhaseEvolution), "run", rec.RunID(), "database", r.Database)
	}
	if len(writers) > 0 {
		opts = append(opts, emeans.WithResultWriter(writers))
	}

	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, emeans.WithObserver(metrics.New(reg)))
		srv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", "err", err)
			}
		}()
		defer srv.Close()
	}

	e, err := emeans.New(opts...)
	if err != nil {
		return err
	}
	res, runErr := e.Fit(ctx, data)

	if db != nil {
		status := store.StatusCompleted
		if runErr != nil {
			status = store.StatusFailed
		}
		if err := db.FinishRun(context.WithoutCancel(ctx), runID, status); err != nil {
			logger.Warn("failed to finish run", "run", runID, "err", err)
		}
	}
	if res != nil && r.Report != "" && len(res.History) > 0 {
		if err := report.WriteFile(r.Report, report.Input{
			Title:   cfg.DataFile,
			History: res.History,
			Best:    res.Best,
			Data:    data,
		}); err != nil {
			logger.Warn("failed to write report", "path", r.Report, "err", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("run finished",
		logging.Phase(logging.PhaseEvolution),
		"generations", len(res.History),
		"best", res.Best.Fitness,
		"generation", res.Best.Generation,
		"sizes", res.Best.Sizes,
		"seed", res.Seed,
	)
	return nil
}
