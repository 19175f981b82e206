package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"paper-trade-bot-go/internal/restclient"

	"go.uber.org/zap"
)

var yahooIntervals = map[Interval]string{
	Daily:   "1d",
	Weekly:  "1wk",
	Monthly: "1mo",
}

// YahooSource fetches price history from the Yahoo Finance chart API.
type YahooSource struct {
	client *restclient.Client
	logger *zap.Logger
	now    func() time.Time
}

var _ Source = (*YahooSource)(nil)

// NewYahooSource creates a YahooSource on client.
func NewYahooSource(client *restclient.Client, logger *zap.Logger) *YahooSource {
	return &YahooSource{client: client, logger: logger, now: time.Now}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchSeries implements Source.
func (s *YahooSource) FetchSeries(ctx context.Context, symbol string, start time.Time, interval Interval) ([]Bar, error) {
	yi, ok := yahooIntervals[interval]
	if !ok {
		return nil, fmt.Errorf("unsupported interval %q", interval)
	}

	var result chartResponse
	req := s.client.R().
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"period1":  strconv.FormatInt(start.Unix(), 10),
			"period2":  strconv.FormatInt(s.now().Unix(), 10),
			"interval": yi,
		}).
		SetHeader("Accept", "application/json").
		SetResult(&result)

	if _, err := s.client.Do(ctx, http.MethodGet, "/v8/finance/chart/{symbol}", req); err != nil {
		return nil, fmt.Errorf("failed to fetch %s %s series: %w", symbol, interval, err)
	}
	if e := result.Chart.Error; e != nil {
		return nil, fmt.Errorf("chart error for %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		s.logger.Warn("Empty chart response", zap.String("symbol", symbol), zap.String("interval", string(interval)))
		return nil, nil
	}

	res := result.Chart.Result[0]
	q := res.Indicators.Quote[0]
	bars := make([]Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		c := at(q.Close, i)
		if c <= 0 {
			continue
		}
		bars = append(bars, Bar{
			Date:   Day(time.Unix(ts, 0).UTC()),
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  c,
			Volume: at(q.Volume, i),
		})
	}
	return SortBars(bars), nil
}

func at(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}
