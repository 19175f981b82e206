package main

import (
	"fmt"
	"os"
	"path/filepath"

	"paper-trade-bot-go/internal/database"
	"paper-trade-bot-go/internal/portfolio"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func verifyCmd() *cobra.Command {
	var fromCSV bool
	var csvPath, runID string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay a trade log and check every recorded cash balance",
		Long: `verify rebuilds the ledger from a trade log, starting from
portfolio.initial_cash. By default it replays the most recent run stored in
the database; --csv replays a CSV trade log, which must hold a single run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			var entries []portfolio.TradeLogEntry
			if fromCSV {
				if csvPath == "" {
					csvPath = filepath.Join(a.cfg.Portfolio.LogDir, portfolio.TradesLogFile)
				}
				if entries, err = portfolio.ReadTradeLog(csvPath); err != nil {
					return err
				}
			} else {
				if entries, runID, err = a.runEntries(runID); err != nil {
					return err
				}
			}

			ledger, err := portfolio.Replay(decimal.NewFromFloat(a.cfg.Portfolio.InitialCash), entries, a.log)
			if err != nil {
				return err
			}
			a.log.Info("Trade log verified", zap.String("run_id", runID), zap.Int("entries", len(entries)))
			fmt.Fprintf(os.Stdout, "OK: %d trades replayed, cash %s, total value %s\n",
				len(entries), ledger.Cash().StringFixed(2), ledger.Summary().StringFixed(2))
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromCSV, "csv", false, "Replay the CSV trade log instead of the database")
	cmd.Flags().StringVar(&csvPath, "log", "", "CSV trade log path (default portfolio.log_dir/trades_log.csv)")
	cmd.Flags().StringVar(&runID, "run", "", "Run to replay (default the latest)")
	return cmd
}

// runEntries loads the trade log of runID, or of the latest run, oldest first.
func (a *app) runEntries(runID string) ([]portfolio.TradeLogEntry, string, error) {
	db, err := a.openDatabase()
	if err != nil {
		return nil, "", err
	}
	if runID == "" {
		if runID, err = database.LatestRunID(db); err != nil {
			return nil, "", err
		}
		if runID == "" {
			return nil, "", fmt.Errorf("no trades recorded")
		}
	}

	trades, err := database.Trades(db, runID)
	if err != nil {
		return nil, "", err
	}
	entries := make([]portfolio.TradeLogEntry, len(trades))
	for i, t := range trades {
		// Trades come most recent first.
		entries[len(trades)-1-i] = portfolio.TradeLogEntry{
			Time:        t.Time,
			Symbol:      t.Symbol,
			Action:      t.Action,
			Price:       t.Price,
			Quantity:    t.Quantity,
			Amount:      t.Amount,
			CashBalance: t.CashBalance,
		}
	}
	return entries, runID, nil
}
