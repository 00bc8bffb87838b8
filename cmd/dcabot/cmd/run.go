package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dcabot/alloc"
	"dcabot/config"
	"dcabot/engine"
	"dcabot/exchange"
	"dcabot/executor"
	"dcabot/journal"
	"dcabot/ledger"
	"dcabot/logger"
	"dcabot/metrics"
	"dcabot/pnl"
	"dcabot/sim"
	"dcabot/trigger"
	"dcabot/upbit"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the accumulation loop",
	Long: `Start the polling loop: place the optional initial installment, then
watch prices and buy whenever an instrument drops below its trigger.

Without UPBIT_ACCESS_KEY/UPBIT_SECRET_KEY and DRY_RUN=false the bot
simulates a wallet against live Upbit prices and places no real orders.

Example:
  COINS=btc,eth DROP_PCT=2.5 TARGET_PROFIT_PCT=10 dcabot run`,
	RunE:          runRun,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runDryRun bool

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "force simulated execution regardless of DRY_RUN")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile, zap.NewNop())
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	// Reload so config warnings land in the real logger.
	cfg, err = config.Load(cfgFile, log)
	if err != nil {
		return err
	}
	if runDryRun {
		cfg.DryRun = true
	}

	venue := upbit.NewClient(cfg.AccessKey, cfg.SecretKey)
	var client exchange.Client = venue
	if !cfg.Live() {
		// Simulated wallet, real market prices.
		client = sim.NewAccount(cfg.SimKRWBalance, cfg.SimBalances, venue, log)
		log.Info("dry run: orders are simulated",
			zap.Float64("sim_krw_balance", cfg.SimKRWBalance))
	}

	jour, err := buildJournal(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jour.Close()

	base, err := os.Getwd()
	if err != nil {
		return err
	}
	store := ledger.NewStore(ledger.ResolvePath(cfg.PurchasesFile, base, log), log)

	mode, err := alloc.ParseMode(cfg.BudgetMode)
	if err != nil {
		log.Warn("unknown budget mode, using pooled", zap.Error(err))
	}

	eng := engine.New(engine.Options{
		Client:              client,
		Exec:                executor.New(client, jour, cfg.MinKRWOrder, log),
		Store:               store,
		Monitor:             trigger.NewMonitor(cfg.DropPct, cfg.DropPctPerCoin, cfg.Instruments, log),
		Targets:             pnl.Targets{ProfitPct: cfg.TargetProfitPct, ProfitKRW: cfg.TargetProfitKRW},
		Instruments:         cfg.Instruments,
		Mode:                mode,
		Weights:             alloc.ParseWeights(cfg.Allocations, cfg.Instruments, log),
		Installments:        cfg.Installments,
		TotalInvestKRW:      cfg.TotalInvestKRW,
		TotalInvestFraction: cfg.TotalInvestFraction,
		InitialBuy:          cfg.InitialBuy,
		SellFraction:        cfg.SellFraction,
		Interval:            time.Duration(cfg.MonitorIntervalSec) * time.Second,
		Log:                 log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		errc := metrics.Serve(cfg.MetricsAddr)
		go func() {
			if err := <-errc; err != nil {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		log.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
	}

	if err := eng.Startup(ctx); err != nil {
		return fmt.Errorf("engine startup: %w", err)
	}
	return eng.Run(ctx)
}

func buildJournal(cfg *config.Config) (journal.Journal, error) {
	switch {
	case cfg.JournalDB != "":
		return journal.NewSQLite(cfg.JournalDB)
	case cfg.JournalCSV != "":
		return journal.NewCSV(cfg.JournalCSV)
	}
	return journal.Nop{}, nil
}
