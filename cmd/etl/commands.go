package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"salesetl/internal/config"
	"salesetl/internal/extract"
	"salesetl/internal/runner"
	"salesetl/internal/schema"
	"salesetl/internal/storage"
	"salesetl/internal/warehouse"
	"salesetl/internal/webui"
)

func (a *app) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Provision the schema, load every entity and build the summaries",
		Long: `run executes one full reload: drop and recreate the warehouse tables, load
customers, products and sales in that order, then rebuild the summaries. A
failed run is retried runtime.retries times after runtime.retry_delay.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			wh, err := a.openWarehouse(ctx)
			if err != nil {
				return err
			}
			start := time.Now()
			st, err := a.newRunner(wh).Run(ctx)
			printStatus(cmd.OutOrStdout(), st)
			if err != nil {
				return err
			}
			if a.verbose {
				log.Printf("completed in %s", elapsed(start))
			}
			return nil
		},
	}
}

func (a *app) schemaCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Drop and recreate the warehouse tables and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dryRun {
				return a.printDDL(cmd.OutOrStdout())
			}
			wh, err := a.openWarehouse(cmd.Context())
			if err != nil {
				return err
			}
			if err := wh.ProvisionSchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema provisioned")
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the DDL for storage.kind instead of executing it")
	return cmd
}

// printDDL renders provisioning and summary statements without connecting.
func (a *app) printDDL(w io.Writer) error {
	d, err := storage.DialectFor(a.pipeline.Storage.Kind)
	if err != nil {
		return err
	}
	stmts, err := warehouse.ProvisionStatements(d, schema.Warehouse())
	if err != nil {
		return err
	}
	stmts = append(stmts, warehouse.ViewStatements(d)...)
	for _, s := range stmts {
		fmt.Fprintf(w, "%s;\n\n", strings.TrimRight(s, "; \n"))
	}
	return nil
}

func (a *app) loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Transform and load every entity into an already provisioned schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			wh, err := a.openWarehouse(ctx)
			if err != nil {
				return err
			}
			ex, err := a.extractorFactory()(ctx)
			if err != nil {
				return err
			}
			sum, err := wh.TransformAndLoad(ctx, ex)
			printSummary(cmd.OutOrStdout(), sum)
			return err
		},
	}
}

func (a *app) viewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "views",
		Short: "Rebuild the monthly sales and customer demographics summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wh, err := a.openWarehouse(cmd.Context())
			if err != nil {
				return err
			}
			if err := wh.BuildViews(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "views built")
			return nil
		},
	}
}

func (a *app) reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print table counts and both summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			wh, err := a.openWarehouse(ctx)
			if err != nil {
				return err
			}
			return writeReport(ctx, cmd.OutOrStdout(), wh)
		},
	}
}

func writeReport(ctx context.Context, out io.Writer, wh *warehouse.Warehouse) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "TABLE\tROWS")
	star := schema.Warehouse()
	for _, e := range schema.LoadOrder {
		n, err := wh.Count(ctx, e)
		if err != nil {
			return err
		}
		t, _ := star.TableFor(e)
		fmt.Fprintf(tw, "%s\t%d\n", t.Name, n)
	}

	monthly, err := wh.MonthlySales(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "\nMONTH\tTOTAL SALES")
	for _, m := range monthly {
		fmt.Fprintf(tw, "%s\t%s\n", m.Month, m.Total.StringFixed(2))
	}

	segments, err := wh.Demographics(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "\nREGION\tGENDER\tCUSTOMERS")
	for _, s := range segments {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", orDash(s.Region), orDash(s.Gender), s.Count)
	}
	return tw.Flush()
}

func (a *app) validateCmd() *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the pipeline config and optionally read every input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			issues := config.ValidatePipeline(a.pipeline)
			for _, iss := range issues {
				fmt.Fprintf(out, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid: %s", a.cfgPath)
			}
			if probe {
				x, err := extract.FromConfig(cmd.Context(), a.pipeline)
				if err != nil {
					return err
				}
				samples, err := x.Probe(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range samples {
					fmt.Fprintf(out, "%s: %s rows=%d skipped=%d headers=%s\n",
						s.Entity, s.Source, s.Rows, s.Skipped, strings.Join(s.Headers, "|"))
				}
			}
			fmt.Fprintf(out, "configuration is valid: %s\n", a.cfgPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "open and parse every input file")
	return cmd
}

func (a *app) scheduleCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on schedule.cron and serve its status",
		Long: `schedule keeps running, starting a full run on every schedule.cron tick
(daily at midnight UTC by default). Runs never overlap. With --listen (or
schedule.listen) a status server exposes /healthz, /status, /run and /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			wh, err := a.openWarehouse(ctx)
			if err != nil {
				return err
			}
			r := a.newRunner(wh)

			s := gocron.NewScheduler(time.UTC)
			s.SingletonModeAll()
			if _, err := s.Cron(a.pipeline.Schedule.Cron).Do(func() {
				if _, err := r.Run(ctx); err != nil {
					log.Printf("schedule: run failed: %v", err)
				}
			}); err != nil {
				return fmt.Errorf("schedule %q: %w", a.pipeline.Schedule.Cron, err)
			}
			s.StartAsync()
			defer s.Stop()
			log.Printf("schedule: cron=%q job=%s", a.pipeline.Schedule.Cron, a.pipeline.Job)

			addr := firstNonEmpty(listen, a.pipeline.Schedule.Listen)
			if addr == "" {
				<-ctx.Done()
				return nil
			}
			return a.serveStatus(ctx, addr, r)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "status server address, e.g. :8080")
	return cmd
}

func (a *app) serveStatus(ctx context.Context, addr string, r *runner.Runner) error {
	cfg := webui.Config{Addr: addr}
	if a.prom != nil {
		cfg.Metrics = a.prom.Handler()
	}
	srv := webui.NewServer(cfg, r)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func printStatus(w io.Writer, st runner.Status) {
	fmt.Fprintf(w, "run %s: %s after %d attempt(s)\n", st.RunID, st.State, st.Attempts)
	for _, e := range st.Entities {
		fmt.Fprintf(w, "  %-8s read=%d kept=%d dropped=%d loaded=%d\n", e.Entity, e.Read, e.Kept, e.Dropped, e.Loaded)
	}
	if st.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", st.Error)
	}
}

func printSummary(w io.Writer, sum warehouse.Summary) {
	for _, rep := range sum.Entities {
		fmt.Fprintf(w, "%s: read=%d kept=%d dropped=%d loaded=%d reasons=%s\n",
			rep.Table, rep.Result.Read, rep.Result.Kept, rep.Result.Dropped, rep.Loaded,
			warehouse.FormatReasons(rep.Result.Reasons))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
