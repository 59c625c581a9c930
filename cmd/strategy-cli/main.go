// strategy-cli runs backtests, warms the bar cache and drives the daily
// signal monitor from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/config"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/marketdata"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/monitor"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/store"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/util"
)

var (
	version  = "0.1.0"
	cfgPath  string
	logLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "strategy-cli",
		Short:         "Backtest and monitor single-ETF trading strategies",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.Path(), "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(backtestCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(monitorCmd())
	rootCmd.AddCommand(strategiesCmd())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("strategy-cli version %s\n", version)
		},
	}
}

// ---------------------------------------------------------------------------
// Local environment
// ---------------------------------------------------------------------------

// localEnv holds the stores and the cached provider chain built from the
// config file.
type localEnv struct {
	cfg      *config.Config
	db       *store.SQLiteStore
	provider *marketdata.CachedProvider
}

func openEnv() (*localEnv, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	util.SetDefault(util.NewLoggerTo(os.Stderr, level, "text"))

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, err
	}
	alpaca := marketdata.NewAlpacaProvider(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL, cfg.Alpaca.Feed, cfg.Alpaca.RateLimitPerMin)
	return &localEnv{
		cfg:      cfg,
		db:       db,
		provider: marketdata.NewCachedProvider(alpaca, store.NewParquetStore(cfg.Storage.DataDir), cfg.Market.CacheToleranceDays),
	}, nil
}

func (e *localEnv) Close() error {
	return e.db.Close()
}

// ---------------------------------------------------------------------------
// fetch
// ---------------------------------------------------------------------------

func fetchCmd() *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "fetch SYMBOL...",
		Short: "Download daily bars into the local cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			if start == "" {
				start = time.Now().AddDate(0, 0, -env.cfg.Market.HistoryDays).Format(domain.DateLayout)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SYMBOL\tBARS\tFIRST\tLAST")
			for _, sym := range args {
				bars, err := env.provider.FetchDaily(cmd.Context(), sym, start, end)
				if err != nil {
					return fmt.Errorf("fetching %s: %w", sym, err)
				}
				first, last := "-", "-"
				if len(bars) > 0 {
					first, last = bars[0].Date, bars[len(bars)-1].Date
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", sym, len(bars), first, last)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "First date (YYYY-MM-DD); defaults to market.history_days ago")
	cmd.Flags().StringVar(&end, "end", "", "Last date (YYYY-MM-DD); defaults to today")
	return cmd
}

// ---------------------------------------------------------------------------
// monitor
// ---------------------------------------------------------------------------

func monitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Run one daily signal check over saved strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()
			cfg := env.cfg

			notifiers := []monitor.Notifier{monitor.NewStoreNotifier(env.db)}
			if cfg.Monitor.TelegramToken != "" && cfg.Monitor.TelegramChatID != 0 {
				tg, err := monitor.NewTelegramNotifier(cfg.Monitor.TelegramToken, cfg.Monitor.TelegramChatID)
				if err != nil {
					return err
				}
				notifiers = append(notifiers, tg)
			}
			if cfg.Monitor.NATSURL != "" {
				nn, err := monitor.NewNATSNotifier(cfg.Monitor.NATSURL, cfg.Monitor.NATSSubject)
				if err != nil {
					return err
				}
				defer nn.Close()
				notifiers = append(notifiers, nn)
			}

			var calendar marketdata.Calendar
			if cfg.Alpaca.APIKey != "" {
				calendar = marketdata.NewAlpacaCalendar(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
			}

			m := monitor.New(env.db, env.db, env.provider, calendar, monitor.Options{
				LookbackDays:   cfg.Monitor.LookbackDays,
				StaleAfterDays: cfg.Monitor.StaleAfterDays,
				VIXSymbol:      cfg.Market.VIXSymbol,
			}, notifiers...)

			sum, err := m.RunDailyCheck(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checked %d, signals %d, skipped %d, errors %d\n",
				sum.Checked, sum.Signals, sum.Skipped, sum.Errors)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// strategies
// ---------------------------------------------------------------------------

func strategiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "Manage saved strategies",
	}

	var user string
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			recs, err := env.db.ListStrategies(cmd.Context(), user)
			if err != nil {
				return err
			}
			return printStrategies(cmd.OutOrStdout(), recs)
		},
	}
	list.Flags().StringVar(&user, "user", "", "Only strategies owned by this user")

	cmd.AddCommand(list)
	return cmd
}
