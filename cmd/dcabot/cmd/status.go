package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dcabot/config"
	"dcabot/ledger"
	"dcabot/pnl"
	"dcabot/upbit"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the ledger state per instrument",
	Long: `Read the purchases ledger and display each instrument's lifecycle
state, installment progress, spend, held quantity, and unrealized P/L at
the current market price.

Example:
  dcabot status
  PURCHASES_FILE=bots/alt.json dcabot status`,
	RunE:         runStatus,
	SilenceUsage: true,
}

var statusNoPrices bool

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusNoPrices, "no-prices", false, "skip the live price lookup")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile, zap.NewNop())
	if err != nil {
		return err
	}

	base, err := os.Getwd()
	if err != nil {
		return err
	}
	store := ledger.NewStore(ledger.ResolvePath(cfg.PurchasesFile, base, zap.NewNop()), nil)
	book, err := store.Load()
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	venue := upbit.NewClient("", "")

	fmt.Printf("Ledger: %s\n\n", store.Path())
	fmt.Printf("%-10s %-13s %5s %5s %14s %16s %14s %10s\n",
		"MARKET", "STATE", "BUYS", "SELLS", "SPENT (KRW)", "HELD", "AVG PRICE", "P/L %")
	for _, s := range ledger.Summarize(book, cfg.Instruments) {
		plCol := "-"
		if !statusNoPrices && s.Held > 0 {
			if price, err := venue.Price(ctx, s.Instrument); err == nil {
				stats := pnl.Compute(book[s.Instrument], price)
				plCol = fmt.Sprintf("%+.2f", stats.UnrealizedPct)
			}
		}
		fmt.Printf("%-10s %-13s %5d %5d %14.0f %16.8f %14.2f %10s\n",
			s.Instrument, s.State, s.Buys, s.Sells, s.Spent, s.Held, s.AvgPrice, plCol)
	}
	fmt.Printf("\nTotal spent: %.0f KRW\n", book.TotalSpent())
	return nil
}
