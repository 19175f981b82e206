package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"paper-trade-bot-go/internal/config"
	"paper-trade-bot-go/internal/database"
	"paper-trade-bot-go/internal/llm"
	"paper-trade-bot-go/internal/logger"
	"paper-trade-bot-go/internal/marketdata"
	"paper-trade-bot-go/internal/portfolio"
	"paper-trade-bot-go/internal/restclient"
	"paper-trade-bot-go/internal/signals"
	"paper-trade-bot-go/internal/trader"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func backtestCmd() *cobra.Command {
	var start, end string
	var symbols []string

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run the day-by-day backtest",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			if cmd.Flags().Changed("start") {
				a.cfg.Backtest.StartDate = start
			}
			if cmd.Flags().Changed("end") {
				a.cfg.Backtest.EndDate = end
			}
			if len(symbols) > 0 {
				a.cfg.Backtest.Symbols = symbols
			}

			// Setup context for graceful shutdown
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.runBacktest(ctx)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "First trading day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Last trading day (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "Symbols to trade, overriding backtest.symbols")
	return cmd
}

func (a *app) runBacktest(ctx context.Context) error {
	cfg := a.cfg
	if len(cfg.Backtest.Symbols) == 0 {
		return fmt.Errorf("no symbols configured")
	}

	opts := trader.BacktestOptions{RunID: uuid.NewString(), Symbols: cfg.Backtest.Symbols}
	var err error
	if opts.HistoryStart, err = parseDay(cfg.Backtest.HistoryStart); err != nil {
		return fmt.Errorf("backtest.history_start: %w", err)
	}
	if opts.Start, err = parseDay(cfg.Backtest.StartDate); err != nil {
		return fmt.Errorf("backtest.start_date: %w", err)
	}
	if opts.End, err = parseDay(cfg.Backtest.EndDate); err != nil {
		return fmt.Errorf("backtest.end_date: %w", err)
	}
	log := a.log.With(zap.String("run_id", opts.RunID))

	db, err := a.openDatabase()
	if err != nil {
		return err
	}

	csvJournal, err := portfolio.NewCSVJournal(cfg.Portfolio.LogDir)
	if err != nil {
		return err
	}
	// The database write is transactional, so it goes first: a failure there
	// leaves both logs untouched.
	journal := portfolio.MultiJournal{database.NewJournal(db, opts.RunID), csvJournal}

	clock := &trader.SimClock{}
	ledger, err := portfolio.NewLedger(decimal.NewFromFloat(cfg.Portfolio.InitialCash), journal, log,
		portfolio.WithClock(clock.Now))
	if err != nil {
		return err
	}

	completer, err := llm.NewCompleter(ctx, cfg.LLM, log)
	if err != nil {
		return err
	}
	audit := zap.NewNop()
	if cfg.LLM.ApiLogPath != "" {
		if audit, err = logger.NewAuditLogger(cfg.LLM.ApiLogPath); err != nil {
			return err
		}
		defer audit.Sync()
	}
	classifier := llm.NewClassifier(completer, cfg.LLM.Model, cfg.LLM.SystemPrompt, audit, log)

	validator := signals.NewValidator(signals.Policy{
		MinConfidence:            cfg.Signals.MinConfidence,
		AllowSellWithoutPosition: cfg.Signals.AllowSellWithoutPosition,
	}, log)
	store := signals.NewStore(db, opts.RunID)
	executor := trader.NewExecutor(ledger, trader.NewSizer(cfg.Portfolio.AllocationFraction), log,
		trader.WithMinConfidence(cfg.Signals.MinConfidence))

	bt := trader.NewBacktest(opts, newSource(cfg.Market, log), classifier, validator, store, ledger, executor, clock, log)
	report, err := bt.Run(ctx)
	printReport(report)
	return err
}

func newSource(cfg config.Market, log *zap.Logger) marketdata.Source {
	if cfg.Source == "yahoo" {
		client := restclient.New(restclient.Options{
			BaseURL:        cfg.BaseURL,
			RateLimit:      cfg.RateLimit,
			RateLimitBurst: cfg.RateLimitBurst,
			Timeout:        30 * time.Second,
		}, log)
		return marketdata.NewYahooSource(client, log)
	}
	return marketdata.NewCSVSource(cfg.DataDir, log)
}

func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(marketdata.DateLayout, s)
}

func printReport(r trader.FinalReport) {
	fmt.Fprintf(os.Stdout, "\nRun %s\n", r.RunID)
	fmt.Fprintf(os.Stdout, "Trading days: %d\n", r.Days)
	fmt.Fprintf(os.Stdout, "Total trades: %d\n", r.Trades)
	fmt.Fprintf(os.Stdout, "Final cash:   %s\n", r.Cash.StringFixed(2))
	for _, p := range r.Holdings {
		fmt.Fprintf(os.Stdout, "  %-8s %6d @ %s\n", p.Symbol, p.Quantity, p.AverageCost.StringFixed(2))
	}
	fmt.Fprintf(os.Stdout, "Total value:  %s\n", r.TotalValue.StringFixed(2))
}
