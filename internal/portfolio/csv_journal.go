package portfolio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradesLogFile    = "trades_log.csv"
	PositionsLogFile = "positions_log.csv"

	csvTimeLayout = "2006-01-02 15:04:05"
)

var (
	tradesHeader    = []string{"Time", "Symbol", "Action", "Price", "Quantity", "Cost", "Cash_Balance"}
	positionsHeader = []string{"Time", "Symbol", "Quantity", "Avg_Price", "Market_Price", "Market_Value", "Cash", "Total_Value"}
)

// CSVJournal appends trades and valuation snapshots to two CSV files in a
// directory. Existing files are never truncated.
type CSVJournal struct {
	tradesPath    string
	positionsPath string
}

var _ Journal = (*CSVJournal)(nil)

// NewCSVJournal creates dir if needed and writes the header of each log file
// that does not exist yet.
func NewCSVJournal(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	j := &CSVJournal{
		tradesPath:    filepath.Join(dir, TradesLogFile),
		positionsPath: filepath.Join(dir, PositionsLogFile),
	}
	if err := ensureHeader(j.tradesPath, tradesHeader); err != nil {
		return nil, err
	}
	if err := ensureHeader(j.positionsPath, positionsHeader); err != nil {
		return nil, err
	}
	return j, nil
}

// TradesPath returns the path of the trade log.
func (j *CSVJournal) TradesPath() string { return j.tradesPath }

// Record implements Journal. The snapshot rows and then the trade row are
// each written with a single write followed by a sync. A failed snapshot
// write leaves the trade log untouched; a failed trade write can leave orphan
// snapshot rows, which replay ignores.
func (j *CSVJournal) Record(trade TradeLogEntry, snapshot []ValuationSnapshotEntry) error {
	rows := make([][]string, 0, len(snapshot))
	for _, s := range snapshot {
		rows = append(rows, []string{
			s.Time.Format(csvTimeLayout),
			s.Symbol,
			strconv.FormatInt(s.Quantity, 10),
			s.AveragePrice.String(),
			s.MarketPrice.String(),
			s.MarketValue.String(),
			s.Cash.String(),
			s.TotalValue.String(),
		})
	}
	if len(rows) > 0 {
		if err := appendRows(j.positionsPath, rows); err != nil {
			return fmt.Errorf("failed to append positions log: %w", err)
		}
	}

	tradeRow := []string{
		trade.Time.Format(csvTimeLayout),
		trade.Symbol,
		trade.Action,
		trade.Price.String(),
		strconv.FormatInt(trade.Quantity, 10),
		trade.Amount.String(),
		trade.CashBalance.String(),
	}
	if err := appendRows(j.tradesPath, [][]string{tradeRow}); err != nil {
		return fmt.Errorf("failed to append trade log: %w", err)
	}
	return nil
}

func ensureHeader(path string, header []string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return appendRows(path, [][]string{header})
}

func appendRows(path string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadTradeLog parses a trade log written by CSVJournal.
func ReadTradeLog(path string) ([]TradeLogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(tradesHeader)

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read trade log header: %w", err)
	}

	var entries []TradeLogEntry
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("trade log line %d: %w", line, err)
		}
		entry, err := parseTradeRow(rec)
		if err != nil {
			return nil, fmt.Errorf("trade log line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseTradeRow(rec []string) (TradeLogEntry, error) {
	ts, err := time.ParseInLocation(csvTimeLayout, rec[0], time.Local)
	if err != nil {
		return TradeLogEntry{}, fmt.Errorf("bad time %q: %w", rec[0], err)
	}
	price, err := decimal.NewFromString(rec[3])
	if err != nil {
		return TradeLogEntry{}, fmt.Errorf("bad price %q: %w", rec[3], err)
	}
	qty, err := strconv.ParseInt(rec[4], 10, 64)
	if err != nil {
		return TradeLogEntry{}, fmt.Errorf("bad quantity %q: %w", rec[4], err)
	}
	amount, err := decimal.NewFromString(rec[5])
	if err != nil {
		return TradeLogEntry{}, fmt.Errorf("bad cost %q: %w", rec[5], err)
	}
	cash, err := decimal.NewFromString(rec[6])
	if err != nil {
		return TradeLogEntry{}, fmt.Errorf("bad cash balance %q: %w", rec[6], err)
	}
	return TradeLogEntry{
		Time:        ts,
		Symbol:      rec[1],
		Action:      rec[2],
		Price:       price,
		Quantity:    qty,
		Amount:      amount,
		CashBalance: cash,
	}, nil
}
