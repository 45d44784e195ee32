package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"salesetl/internal/config"
	"salesetl/internal/extract"
	"salesetl/internal/metrics"
	"salesetl/internal/metrics/datadog"
	"salesetl/internal/metrics/prompush"
	"salesetl/internal/runner"
	"salesetl/internal/storage"
	"salesetl/internal/transformer"
	"salesetl/internal/warehouse"

	// register all backends with the storage factory.
	_ "salesetl/internal/storage/all"
)

// app holds the flags and state shared by every subcommand.
type app struct {
	cfgPath        string
	envFile        string
	metricsBackend string
	pushGatewayURL string
	statsdAddr     string
	verbose        bool

	pipeline config.Pipeline
	prom     *prompush.Backend
	closers  []func() error
}

// execute runs the CLI with args. Connections and metrics clients opened by
// the subcommand are released before it returns.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer a.teardown()
	return root.ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "etl",
		Short: "Load e-commerce sales files into a star-schema warehouse",
		Long: `etl reads customer, product and sales files, cleans them, loads them into
customer_dim, product_dim and sales_fact, and rebuilds the monthly sales and
customer demographics summaries.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "configs/pipelines/ecommerce.json", "pipeline config JSON path")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file with DB_* settings (ignored when missing)")
	pf.StringVar(&a.metricsBackend, "metrics-backend", "", "metrics backend: pushgateway, prometheus, datadog, none (default from METRICS_BACKEND)")
	pf.StringVar(&a.pushGatewayURL, "pushgateway-url", "", "Pushgateway base URL (default from PUSHGATEWAY_URL)")
	pf.StringVar(&a.statsdAddr, "statsd-addr", "", "DogStatsD address (default from DD_DOGSTATSD_URL or 127.0.0.1:8125)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logs")

	root.AddCommand(
		a.runCmd(),
		a.schemaCmd(),
		a.loadCmd(),
		a.viewsCmd(),
		a.reportCmd(),
		a.validateCmd(),
		a.scheduleCmd(),
	)
	return root
}

// setup loads .env and the pipeline file and installs the metrics backend.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	log.SetOutput(cmd.ErrOrStderr())
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	p, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.pipeline = p
	if cmd.Name() == "validate" {
		return nil
	}
	return a.setupMetrics()
}

func (a *app) teardown() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
	a.closers = nil
}

// setupMetrics picks the backend: flag, then env, then none.
func (a *app) setupMetrics() error {
	name := firstNonEmpty(a.metricsBackend, os.Getenv("METRICS_BACKEND"), "none")
	job := a.pipeline.Job

	switch name {
	case "pushgateway", "prometheus":
		gw := ""
		if name == "pushgateway" {
			gw = firstNonEmpty(a.pushGatewayURL, os.Getenv("PUSHGATEWAY_URL"), "http://localhost:9091")
		}
		b, err := prompush.NewBackend(job, gw)
		if err != nil {
			log.Printf("metrics: failed to init prometheus backend: %v; using nop", err)
			return nil
		}
		a.prom = b
		metrics.SetBackend(b)
		log.Printf("metrics: backend=%s pushgateway=%q job=%s", name, gw, job)

	case "datadog":
		addr := firstNonEmpty(a.statsdAddr, os.Getenv("DD_DOGSTATSD_URL"), "127.0.0.1:8125")
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  "salesetl.",
			GlobalTags: []string{"job:" + job},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return nil
		}
		metrics.SetBackend(b)
		a.closers = append(a.closers, b.Close)
		log.Printf("metrics: backend=datadog addr=%s", addr)

	case "none":
		if a.verbose {
			log.Printf("metrics: disabled")
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", name)
	}
	return nil
}

// openWarehouse opens the configured backend. The repository is closed by
// teardown.
func (a *app) openWarehouse(ctx context.Context) (*warehouse.Warehouse, error) {
	p := a.pipeline
	dsn, err := config.ResolveDSN(p)
	if err != nil {
		return nil, fmt.Errorf("resolve dsn: %w", err)
	}
	if a.verbose {
		log.Printf("storage: kind=%s dsn=%s", p.Storage.Kind, config.RedactDSN(dsn))
	}
	repo, err := storage.New(ctx, storage.Config{
		Kind:     p.Storage.Kind,
		DSN:      dsn,
		MaxConns: p.Storage.DB.MaxConns,
	})
	if err != nil {
		return nil, &warehouse.ConnectivityError{Op: "connect " + p.Storage.Kind, Err: err}
	}
	a.closers = append(a.closers, func() error { repo.Close(); return nil })

	return warehouse.New(repo,
		warehouse.WithJob(p.Job),
		warehouse.WithBatchSize(p.Runtime.BatchSize),
		warehouse.WithTransformOptions(transformOptions(p.Transform)...),
	), nil
}

func transformOptions(t config.TransformConfig) []transformer.Option {
	var opts []transformer.Option
	if len(t.HeaderMap) > 0 {
		opts = append(opts, transformer.WithHeaderMap(t.HeaderMap))
	}
	if len(t.DateLayouts) > 0 {
		opts = append(opts, transformer.WithDateLayouts(t.DateLayouts))
	}
	if t.SampleLimit != nil {
		opts = append(opts, transformer.WithSampleLimit(*t.SampleLimit))
	}
	if t.DedupPolicy != "" {
		opts = append(opts, transformer.WithDedupPolicy(t.DedupPolicy))
	}
	return opts
}

// extractorFactory prefetches every input concurrently before the core
// starts.
func (a *app) extractorFactory() runner.ExtractorFactory {
	p := a.pipeline
	return func(ctx context.Context) (warehouse.Extractor, error) {
		x, err := extract.FromConfig(ctx, p)
		if err != nil {
			return nil, err
		}
		if err := x.Prefetch(ctx); err != nil {
			return nil, err
		}
		return x, nil
	}
}

func (a *app) newRunner(wh *warehouse.Warehouse) *runner.Runner {
	rt := a.pipeline.Runtime
	retries := config.DefaultRetries
	if rt.Retries != nil {
		retries = *rt.Retries
	}
	return runner.New(wh, a.extractorFactory(), runner.Config{
		Job:        a.pipeline.Job,
		Retries:    retries,
		RetryDelay: rt.RetryDelay.Duration,
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func elapsed(start time.Time) string {
	return time.Since(start).Truncate(time.Millisecond).String()
}
