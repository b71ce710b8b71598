package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hanulsoft/kistrader/config"
	"github.com/hanulsoft/kistrader/internal/util"
	"github.com/hanulsoft/kistrader/journal"
	"github.com/hanulsoft/kistrader/kis"
	"github.com/hanulsoft/kistrader/metrics"
	"github.com/hanulsoft/kistrader/notify"
	"github.com/hanulsoft/kistrader/trader"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading session",
	Long: `Run one trading session against the configured account.

The process exits on its own when the market closes (or immediately on a
weekend). Any transport-level error ends the session with a final
notification to the operator channel.

Example:
  kistrader run -f config.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := util.NewLogger(cfg.LogLevel)

	sched, err := cfg.Schedule.Build()
	if err != nil {
		return fmt.Errorf("build schedule: %w", err)
	}
	pacing, err := cfg.Pacing.Build()
	if err != nil {
		return fmt.Errorf("build pacing: %w", err)
	}

	var notifier notify.Notifier = notify.Null{Log: log}
	if cfg.Notify.DiscordWebhookURL != "" {
		notifier = notify.NewDiscord(cfg.Notify.DiscordWebhookURL, log)
	}

	var j journal.Journal
	switch cfg.Journal.Type {
	case "sqlite":
		j, err = journal.NewSQLite(cfg.Journal.DBPath)
	case "csv":
		j, err = journal.NewCSV(cfg.Journal.OrdersFile, cfg.Journal.BalancesFile)
	default:
		j = journal.Noop{}
	}
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	if cfg.Metrics.Addr != "" {
		metrics.Serve(cfg.Metrics.Addr)
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics listener started")
	}

	client := kis.NewClient(kis.Config{
		BaseURL:     cfg.API.BaseURL,
		AppKey:      cfg.API.AppKey,
		AppSecret:   cfg.API.AppSecret,
		Account:     cfg.Account.Number,
		ProductCode: cfg.Account.ProductCode,
	})

	t := trader.New(trader.Config{
		Watchlist:      cfg.Strategy.Watchlist,
		TargetBuyCount: cfg.Strategy.TargetBuyCount,
		BuyPercent:     cfg.Strategy.BuyPercent,
		Schedule:       sched,
		Pacing:         pacing,
	}, client, notifier, j, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Single top-level failure handler: one final notification, then exit.
	if err := t.Run(ctx); err != nil {
		notifier.Notify(fmt.Sprintf("[fatal] %v", err))
		log.Error().Err(err).Msg("session ended with fatal error")
		return err
	}
	return nil
}
