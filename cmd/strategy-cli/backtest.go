package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/api"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/chart"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/config"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/engine"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/store"
	"github.com/digitalboy/Investment-Strategy-Designer/pkg/client"
)

func backtestCmd() *cobra.Command {
	var (
		file      string
		chartPath string
		asJSON    bool
		server    string
		grpcAddr  string
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run a strategy file against historical data",
		Long: `Run a strategy definition (YAML or JSON) locally, or against a running
strategy-server with --server (HTTP) or --grpc.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			strat, err := config.LoadStrategy(file)
			if err != nil {
				return err
			}

			var run *api.RunRecord
			switch {
			case server != "":
				c := client.NewClient(server)
				if run, err = c.RunBacktest(cmd.Context(), strat); err != nil {
					return err
				}
				if chartPath != "" {
					png, err := c.Chart(cmd.Context(), run.ID)
					if err != nil {
						return err
					}
					return finish(cmd.OutOrStdout(), run, png, chartPath, asJSON)
				}
			case grpcAddr != "":
				g, err := client.DialGRPC(grpcAddr)
				if err != nil {
					return err
				}
				defer g.Close()
				if run, err = g.RunBacktest(cmd.Context(), strat); err != nil {
					return err
				}
			default:
				if run, err = runLocal(cmd.Context(), strat); err != nil {
					return err
				}
			}

			var png []byte
			if chartPath != "" {
				if png, err = chart.RenderEquity(run.Result); err != nil {
					return err
				}
			}
			return finish(cmd.OutOrStdout(), run, png, chartPath, asJSON)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Strategy definition file (.yaml or .json)")
	cmd.Flags().StringVar(&chartPath, "chart", "", "Write the equity chart PNG to this path")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full run as JSON")
	cmd.Flags().StringVar(&server, "server", "", "strategy-server base URL, e.g. http://localhost:8080")
	cmd.Flags().StringVar(&grpcAddr, "grpc", "", "strategy-server gRPC address, e.g. localhost:9090")
	cmd.MarkFlagRequired("file")
	return cmd
}

func runLocal(ctx context.Context, strat domain.StrategyConfig) (*api.RunRecord, error) {
	env, err := openEnv()
	if err != nil {
		return nil, err
	}
	defer env.Close()

	cfg := env.cfg
	svc := api.NewService(env.provider, engine.NewEngine(nil, cfg.Backtest.TopDrawdowns, nil),
		api.Stores{Runs: env.db, Strategies: env.db, Notifications: env.db},
		api.Options{
			HistoryDays:     cfg.Market.HistoryDays,
			VIXSymbol:       cfg.Market.VIXSymbol,
			TNXSymbol:       cfg.Market.TNXSymbol,
			DCAAcceleration: cfg.Backtest.DCAAcceleration,
		}, nil)
	return svc.RunBacktest(ctx, strat)
}

func finish(w io.Writer, run *api.RunRecord, png []byte, chartPath string, asJSON bool) error {
	if chartPath != "" {
		if err := os.WriteFile(chartPath, png, 0o644); err != nil {
			return fmt.Errorf("writing chart: %w", err)
		}
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}
	return printRun(w, run)
}

// printRun writes a metrics table comparing the strategy with every
// benchmark, followed by the deepest drawdowns.
func printRun(w io.Writer, run *api.RunRecord) error {
	res := run.Result
	fmt.Fprintf(w, "Run %s  %s  %s\n", run.ID, res.Metadata.Symbol, res.Metadata.Period)
	if len(run.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(run.Tags, ", "))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\tTOTAL %\tANNUAL %\tMAX DD %\tSHARPE\tTRADES\t")
	row := func(name string, m domain.PerformanceMetrics) {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%d\t\n",
			name, m.TotalReturn, m.AnnualizedReturn, m.MaxDrawdown, m.SharpeRatio, m.TradeStats.TotalTrades)
	}
	row("strategy", res.Performance.Strategy)
	row("buy-and-hold", res.Performance.Benchmark)
	row("weekly-dca", res.Performance.DCA)
	row("adaptive-trend", res.Performance.Scoring)
	names := make([]string, 0, len(res.Performance.Additional))
	for name := range res.Performance.Additional {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		row(name, res.Performance.Additional[name])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(res.Analysis.TopDrawdowns) > 0 {
		fmt.Fprintln(w, "\nDrawdowns:")
		for _, dd := range res.Analysis.TopDrawdowns {
			recovery := "not recovered"
			if dd.RecoveryDate != nil {
				recovery = fmt.Sprintf("recovered %s (%d days)", *dd.RecoveryDate, dd.DaysToRecover)
			}
			fmt.Fprintf(w, "  #%d %.2f%%  %s -> %s  %s\n", dd.Rank, dd.DepthPercent, dd.PeakDate, dd.ValleyDate, recovery)
		}
	}
	return nil
}

func printStrategies(w io.Writer, recs []store.StrategyRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSER\tNAME\tSYMBOL\tNOTIFY\tRETURN %")
	for _, r := range recs {
		ret := "-"
		if r.LastReturn != nil {
			ret = fmt.Sprintf("%.2f", *r.LastReturn)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\t%s\n", r.ID, r.UserID, r.Name, r.Config.Symbol, r.NotificationsEnabled, ret)
	}
	return tw.Flush()
}
