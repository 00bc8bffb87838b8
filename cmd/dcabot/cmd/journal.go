package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dcabot/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query fill journal data",
	Long: `Query and display fill records from the SQLite journal.

Subcommands:
  fill    - Get details of a specific fill by ID
  day     - List fills executed on a specific day
  totals  - Aggregate buy/sell volume per instrument

Examples:
  dcabot journal fill <fill-id>
  dcabot journal day 2026-08-15
  dcabot journal totals`,
}

var journalFillCmd = &cobra.Command{
	Use:   "fill <fill-id>",
	Short: "Get details of a specific fill",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalFill,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List fills executed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalTotalsCmd = &cobra.Command{
	Use:   "totals",
	Short: "Aggregate buy/sell volume per instrument",
	Args:  cobra.NoArgs,
	RunE:  runJournalTotals,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalFillCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalTotalsCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./dcabot.sqlite", "path to SQLite journal DB")
}

func runJournalFill(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetFill(args[0])
	if err != nil {
		return fmt.Errorf("get fill: %w", err)
	}

	fmt.Printf("Fill %s\n", rec.FillID)
	fmt.Printf("  Instrument: %s\n", rec.Instrument)
	fmt.Printf("  Side:       %s\n", rec.Side)
	fmt.Printf("  KRW:        %.0f\n", rec.KRW)
	fmt.Printf("  Quantity:   %.8f\n", rec.Quantity)
	fmt.Printf("  Price:      %.2f\n", rec.Price)
	fmt.Printf("  Time:       %s\n", rec.Time.Format(time.RFC3339))
	return nil
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	day, err := time.Parse("2006-01-02", args[0])
	if err != nil {
		return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", args[0])
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	fills, err := j.ListFillsBetween(day, day.Add(24*time.Hour))
	if err != nil {
		return fmt.Errorf("list fills: %w", err)
	}
	if len(fills) == 0 {
		fmt.Printf("No fills on %s\n", args[0])
		return nil
	}

	fmt.Printf("%-8s %-10s %-5s %12s %16s %12s\n",
		"TIME", "MARKET", "SIDE", "KRW", "QUANTITY", "PRICE")
	for _, f := range fills {
		fmt.Printf("%-8s %-10s %-5s %12.0f %16.8f %12.2f\n",
			f.Time.Format("15:04:05"), f.Instrument, f.Side, f.KRW, f.Quantity, f.Price)
	}
	return nil
}

func runJournalTotals(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	totals, err := j.InstrumentTotals()
	if err != nil {
		return fmt.Errorf("aggregate fills: %w", err)
	}
	if len(totals) == 0 {
		fmt.Println("Journal is empty")
		return nil
	}

	fmt.Printf("%-10s %14s %14s %16s\n", "MARKET", "BUY (KRW)", "SELL (KRW)", "NET QTY")
	for _, t := range totals {
		fmt.Printf("%-10s %14.0f %14.0f %16.8f\n", t.Instrument, t.BuyKRW, t.SellKRW, t.NetQty)
	}
	return nil
}
