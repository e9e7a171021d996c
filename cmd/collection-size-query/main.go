package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	cli "github.com/jawher/mow.cli"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/birkin/collection-size-query-project/internal/config"
	"github.com/birkin/collection-size-query-project/pkg/bdr"
	"github.com/birkin/collection-size-query-project/pkg/client"
	"github.com/birkin/collection-size-query-project/pkg/logging"
	"github.com/birkin/collection-size-query-project/pkg/scan"
)

var appDescription = "Finds repository collections with a small number of items"

func main() {
	app := cli.App("collection-size-query", appDescription)

	serverRoot := app.String(cli.StringOpt{
		Name:   "server-root",
		Value:  "",
		Desc:   "Repository base URL, e.g. https://repository.library.brown.edu",
		EnvVar: "SERVER_ROOT",
	})

	configPath := app.String(cli.StringOpt{
		Name:   "config",
		Value:  "",
		Desc:   "Path to an optional YAML config file",
		EnvVar: "COLLSIZE_CONFIG",
	})

	minItems := app.Int(cli.IntOpt{
		Name:   "min-items",
		Value:  -1,
		Desc:   "Minimum items for a collection to be considered small (-1: use config)",
		EnvVar: "MIN_ITEMS_CONSIDERED_SMALL",
	})

	maxItems := app.Int(cli.IntOpt{
		Name:   "max-items",
		Value:  -1,
		Desc:   "Maximum items for a collection to be considered small (-1: use config)",
		EnvVar: "MAX_ITEMS_CONSIDERED_SMALL",
	})

	batchSize := app.Int(cli.IntOpt{
		Name:   "batch-size",
		Value:  -1,
		Desc:   "Collections requested per listing page (-1: use config)",
		EnvVar: "COLLECTIONS_PER_BATCH_SIZE",
	})

	maxCheck := app.Int(cli.IntOpt{
		Name:   "max-check",
		Value:  -1,
		Desc:   "Maximum collections to check (-1: use config)",
		EnvVar: "MAX_COLLECTIONS_TO_CHECK",
	})

	gather := app.Int(cli.IntOpt{
		Name:   "gather",
		Value:  -1,
		Desc:   "Number of matches after which the scan stops (-1: use config)",
		EnvVar: "COLLECTIONS_TO_GATHER_SIZE",
	})

	sleepMS := app.Int(cli.IntOpt{
		Name:   "sleep-ms",
		Value:  -1,
		Desc:   "Milliseconds to sleep between item-count requests (-1: use config)",
		EnvVar: "SLEEP_MS",
	})

	logLevel := app.String(cli.StringOpt{
		Name:   "log-level",
		Value:  "",
		Desc:   "Log level: debug, info, warn, error (default: config)",
		EnvVar: "LOG_LEVEL",
	})

	pretty := app.Bool(cli.BoolOpt{
		Name:   "pretty",
		Value:  false,
		Desc:   "Human-readable console log output instead of JSON",
		EnvVar: "LOG_PRETTY",
	})

	metricsAddr := app.String(cli.StringOpt{
		Name:   "metrics-addr",
		Value:  "",
		Desc:   "Address to serve Prometheus /metrics on during the scan (disabled when empty)",
		EnvVar: "METRICS_ADDR",
	})

	app.Action = func() {
		cfg := config.Default()
		if *configPath != "" {
			loaded, err := config.Load(*configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "config error: %v\n", err)
				cli.Exit(1)
			}
			cfg = loaded
		}
		applyOverrides(&cfg, *serverRoot, *minItems, *maxItems, *batchSize, *maxCheck, *gather, *sleepMS, *logLevel)

		logger := logging.Setup(logging.Config{
			Level:  logging.LogLevel(cfg.Logging.Level),
			Pretty: *pretty || cfg.Logging.Pretty,
			Output: os.Stderr,
		})

		if cfg.Server.Root == "" {
			logger.Fatal().Msg("SERVER_ROOT is required")
		}

		api, err := client.New(client.Config{
			ServerRoot: cfg.Server.Root,
			UserAgent:  cfg.Server.UserAgent,
			Timeout:    cfg.Timeout(),
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Could not create repository API client")
		}

		scanner, err := scan.New(bdr.NewClient(api), scan.Config{
			MinItems:     cfg.Scan.MinItems,
			MaxItems:     cfg.Scan.MaxItems,
			BatchSize:    cfg.Scan.BatchSize,
			MaxCheck:     cfg.Scan.MaxCheck,
			GatherTarget: cfg.Scan.GatherTarget,
			Delay:        cfg.Sleep(),
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Could not create scanner")
		}

		if *metricsAddr != "" {
			go serveMetrics(*metricsAddr)
			logger.Info().Str("addr", *metricsAddr).Msg("Serving Prometheus metrics")
		}

		results, err := scanner.Run(context.Background())
		if err != nil {
			logger.Error().Err(err).Msg("Scan failed")
			cli.Exit(1)
		}

		printResults(os.Stdout, results)
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// applyOverrides folds CLI/env values into the loaded config. Numeric flags
// default to -1 meaning "keep the config value".
func applyOverrides(cfg *config.Config, serverRoot string, minItems, maxItems, batchSize, maxCheck, gather, sleepMS int, logLevel string) {
	if serverRoot != "" {
		cfg.Server.Root = serverRoot
	}
	if minItems >= 0 {
		cfg.Scan.MinItems = minItems
	}
	if maxItems >= 0 {
		cfg.Scan.MaxItems = maxItems
	}
	if batchSize >= 0 {
		cfg.Scan.BatchSize = batchSize
	}
	if maxCheck >= 0 {
		cfg.Scan.MaxCheck = maxCheck
	}
	if gather >= 0 {
		cfg.Scan.GatherTarget = gather
	}
	if sleepMS >= 0 {
		cfg.Scan.SleepMS = sleepMS
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}

// printResults writes one report line per qualifying collection.
func printResults(w io.Writer, results []bdr.CollectionInfo) {
	for _, info := range results {
		fmt.Fprintln(w, info)
	}
}

// serveMetrics exposes the Prometheus registry for the duration of the scan.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
	}
}
