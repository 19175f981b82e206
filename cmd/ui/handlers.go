package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"paper-trade-bot-go/internal/database"
	"paper-trade-bot-go/internal/models"
	"paper-trade-bot-go/internal/portfolio"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log       *zap.Logger
	db        *gorm.DB
	startTime time.Time
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, db *gorm.DB) *APIHandler {
	return &APIHandler{log: log.Named("api"), db: db, startTime: time.Now()}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}

// TradesHandler returns the trade log, most recent first. The optional "run"
// query parameter selects one run.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := database.Trades(h.db, r.URL.Query().Get("run"))
	if err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		http.Error(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	h.writeJSON(w, trades)
}

// PositionsHandler returns the valuation rows written with the latest trade.
func (h *APIHandler) PositionsHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := database.LatestSnapshot(h.db, r.URL.Query().Get("run"))
	if err != nil {
		h.log.Error("Failed to get positions from database", zap.Error(err))
		http.Error(w, "Failed to get positions", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []models.PositionSnapshot{}
	}
	h.writeJSON(w, rows)
}

// StatsDetail holds trade statistics for one run or for every run.
type StatsDetail struct {
	TotalTrades int64           `json:"total_trades"`
	Buys        int64           `json:"buys"`
	Sells       int64           `json:"sells"`
	Bought      decimal.Decimal `json:"bought"`
	Sold        decimal.Decimal `json:"sold"`
	Cash        decimal.Decimal `json:"cash"`
	TotalValue  decimal.Decimal `json:"total_value"`
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	RunID string      `json:"run_id"`
	Run   StatsDetail `json:"run"`
}

// StatisticsHandler summarizes the trades of a run, the latest by default.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run")
	if runID == "" {
		var err error
		if runID, err = database.LatestRunID(h.db); err != nil {
			h.log.Error("Failed to get latest run", zap.Error(err))
			http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
			return
		}
	}

	resp := StatisticsResponse{RunID: runID}
	if runID == "" {
		h.writeJSON(w, resp)
		return
	}

	trades, err := database.Trades(h.db, runID)
	if err != nil {
		h.log.Error("Failed to get trades for statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}
	rows, err := database.LatestSnapshot(h.db, runID)
	if err != nil {
		h.log.Error("Failed to get positions for statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	resp.Run = tradeStats(trades, rows)
	h.writeJSON(w, resp)
}

// tradeStats folds a run's trades, most recent first, and its latest
// valuation rows into a StatsDetail.
func tradeStats(trades []models.Trade, rows []models.PositionSnapshot) StatsDetail {
	var s StatsDetail
	for _, t := range trades {
		s.TotalTrades++
		switch t.Action {
		case portfolio.ActionBuy:
			s.Buys++
			s.Bought = s.Bought.Add(t.Amount)
		case portfolio.ActionSell:
			s.Sells++
			s.Sold = s.Sold.Add(t.Amount)
		}
	}
	if len(trades) > 0 {
		s.Cash = trades[0].CashBalance
		s.TotalValue = s.Cash
	}
	if len(rows) > 0 {
		s.TotalValue = rows[0].TotalValue
	}
	return s
}

// StatusHandler reports the server's uptime and the latest run.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	runID, err := database.LatestRunID(h.db)
	if err != nil {
		h.log.Error("Failed to get latest run", zap.Error(err))
		http.Error(w, "Failed to get status", http.StatusInternalServerError)
		return
	}

	status := struct {
		LatestRun string `json:"latest_run"`
		StartTime string `json:"start_time"`
		Uptime    string `json:"uptime"`
	}{
		LatestRun: runID,
		StartTime: h.startTime.Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).String(),
	}
	h.writeJSON(w, status)
}

// HealthHandler answers liveness probes.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
