package main

import (
	"fmt"
	"os"

	"paper-trade-bot-go/internal/database"

	"github.com/spf13/cobra"
)

func summaryCmd() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the latest portfolio valuation of a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			if runID == "" {
				if runID, err = database.LatestRunID(db); err != nil {
					return err
				}
			}
			if runID == "" {
				fmt.Fprintln(os.Stdout, "No trades recorded.")
				return nil
			}

			trades, err := database.Trades(db, runID)
			if err != nil {
				return err
			}
			rows, err := database.LatestSnapshot(db, runID)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "Run %s: %d trades\n", runID, len(trades))
			if len(trades) > 0 {
				fmt.Fprintf(os.Stdout, "Last trade: %s %s %d @ %s\n",
					trades[0].Action, trades[0].Symbol, trades[0].Quantity, trades[0].Price.StringFixed(2))
				fmt.Fprintf(os.Stdout, "Cash: %s\n", trades[0].CashBalance.StringFixed(2))
			}
			for _, r := range rows {
				fmt.Fprintf(os.Stdout, "  %-8s %6d avg %10s value %12s\n",
					r.Symbol, r.Quantity, r.AveragePrice.StringFixed(2), r.MarketValue.StringFixed(2))
			}
			if len(rows) > 0 {
				fmt.Fprintf(os.Stdout, "Total value: %s\n", rows[0].TotalValue.StringFixed(2))
			} else if len(trades) > 0 {
				fmt.Fprintf(os.Stdout, "Total value: %s\n", trades[0].CashBalance.StringFixed(2))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run to summarize (default the latest)")
	return cmd
}
