package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"stageload/internal/bench"
	"stageload/internal/config"
	"stageload/internal/metrics"
	"stageload/internal/metrics/prompush"
	"stageload/internal/source"
	"stageload/internal/storage"
	"stageload/internal/storage/postgres"
	"stageload/internal/storage/sqlite"
)

// main is the entry point for the stageload binary. It loads the profile,
// optionally initializes a metrics backend, and either runs one load with
// the configured strategy or benchmarks all strategies against the dataset.
func main() {
	var (
		cfgPath           string
		strategyFlg       string
		metricsBackendFlg string
		pushGatewayURLFlg string
		runBench          bool
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/stageload.json", "load profile JSON path")
	flag.StringVar(&strategyFlg, "strategy", "", "override the profile's strategy (one_by_one, batch, chunked, copy_stream)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (prompush, none); overrides the profile")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL; overrides the profile")
	flag.BoolVar(&runBench, "bench", false, "run every strategy over the dataset and print a comparison table")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	p, err := config.LoadFile(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	if strategyFlg != "" {
		p.Load.Strategy = strategyFlg
	}
	if metricsBackendFlg != "" {
		p.Metrics.Backend = metricsBackendFlg
	}
	if pushGatewayURLFlg != "" {
		p.Metrics.PushgatewayURL = pushGatewayURLFlg
	}

	issues := config.Validate(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	switch p.Metrics.Backend {
	case "prompush":
		b, err := prompush.NewBackend(p.Metrics.Job, p.Metrics.PushgatewayURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			break
		}
		if *verbose {
			log.Printf("metrics: backend=prompush url=%s job=%s", p.Metrics.PushgatewayURL, p.Metrics.Job)
		}
		metrics.SetBackend(b)
		defer func() {
			if err := metrics.Flush(); err != nil {
				log.Printf("metrics: flush error: %v", err)
			}
		}()

	case "", "none":
		if *verbose {
			log.Printf("metrics: disabled")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, p.Storage)
	if err != nil {
		fatalf("%v", err)
	}
	defer store.Close()

	loader := &storage.Loader{
		Store:    store,
		Table:    p.Storage.Table,
		SingleTx: p.Storage.SingleTransaction,
	}

	newSource := sourceFactory(ctx, p.Source)

	start := time.Now()
	if runBench {
		runner := &bench.Runner{
			Loader:     loader,
			NewSource:  newSource,
			Strategies: bench.DefaultStrategies(p.Load.PageSize, p.Load.BufferSize),
		}
		results, err := runner.Run(ctx)
		if err != nil {
			log.Fatalf("bench: %v", err)
		}
		if err := bench.WriteTable(os.Stdout, results); err != nil {
			log.Fatalf("bench: %v", err)
		}
	} else {
		strat, err := storage.NewStrategy(p.Load.Strategy, p.Load.PageSize, p.Load.BufferSize)
		if err != nil {
			fatalf("%v", err)
		}
		src, err := newSource()
		if err != nil {
			fatalf("%v", err)
		}
		if _, err := loader.Load(ctx, strat, src); err != nil {
			log.Fatalf("load: %v", err)
		}
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// openStore builds the configured store backend.
func openStore(ctx context.Context, cfg config.Storage) (storage.Store, error) {
	switch cfg.Kind {
	case "postgres":
		return postgres.Open(ctx, cfg.DSN)
	case "sqlite":
		return sqlite.Open(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
	}
}

// sourceFactory returns a constructor for fresh single-pass sources; the
// bench runner needs one pass per strategy.
func sourceFactory(ctx context.Context, cfg config.Source) func() (source.Source, error) {
	return func() (source.Source, error) {
		var src source.Source
		switch cfg.Kind {
		case "api":
			src = source.NewAPI(ctx, source.APIConfig{
				BaseURL:    cfg.API.BaseURL,
				PageSize:   cfg.API.PageSize,
				Timeout:    time.Duration(cfg.API.TimeoutSeconds) * time.Second,
				MaxRetries: cfg.API.MaxRetries,
			})
		case "file":
			var err error
			src, err = source.FromFile(cfg.File.Path)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
		}

		if cfg.Prefetch > 0 {
			src = source.Prefetch(ctx, src, cfg.Prefetch)
		}
		return src, nil
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
