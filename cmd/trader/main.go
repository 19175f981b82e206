package main

import (
	"fmt"
	"os"

	"paper-trade-bot-go/internal/config"
	"paper-trade-bot-go/internal/database"
	"paper-trade-bot-go/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var configDir string

func main() {
	rootCmd := &cobra.Command{
		Use:   "trader",
		Short: "Paper-trading simulator driven by language-model signals",
		Long: `trader replays market history one day at a time, asks a language model
for BUY/SELL/HOLD signals, validates them and executes them against a
simulated cash and position ledger with an append-only trade log.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "./configs", "Directory containing config.yml")

	rootCmd.AddCommand(backtestCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(summaryCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every command needs.
type app struct {
	cfg config.Config
	log *zap.Logger
}

func loadApp() (*app, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return nil, fmt.Errorf("could not initialize logger: %w", err)
	}
	log.Info("Configuration loaded")
	return &app{cfg: cfg, log: log}, nil
}

func (a *app) openDatabase() (*gorm.DB, error) {
	dsn := a.cfg.Database.DSN
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := database.NewDatabase(dsn)
	if err != nil {
		return nil, err
	}
	a.log.Info("Database connection successful and schema migrated.", zap.String("dsn", dsn))
	return db, nil
}
