// Package yahoo fetches market index series from the Yahoo Finance chart API.
package yahoo

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"universe_backend/internal/feature/widgets/domain/entity"
)

const day = 24 * time.Hour

// chartResponse は /v8/finance/chart のレスポンスのうち使用する部分です。
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartClient struct {
	client  *http.Client
	baseURL string
	symbol  string
	now     func() time.Time
}

// NewChartClient はYahoo Financeのチャートクライアントを生成します。
// symbolは取得する指数のシンボル（例: ^GSPC）です。
func NewChartClient(client *http.Client, baseURL, symbol string) *chartClient {
	return &chartClient{client: client, baseURL: baseURL, symbol: symbol, now: time.Now}
}

// window は期間ごとの開始時刻と足の間隔を返します。
func window(timespan string, now time.Time) (time.Time, string, error) {
	switch timespan {
	case "1D":
		return now.Add(-day), "5m", nil
	case "5D":
		return now.Add(-5 * day), "1h", nil
	case "1M":
		return now.Add(-30 * day), "1d", nil
	case "6M":
		return now.Add(-180 * day), "1d", nil
	case "YTD":
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), "1d", nil
	case "2Y":
		return now.Add(-2 * 365 * day), "1d", nil
	case "7Y":
		return now.Add(-7 * 365 * day), "1mo", nil
	}
	return time.Time{}, "", fmt.Errorf("unsupported timespan %q", timespan)
}

// Fetch は指定期間の終値系列を取得し、IndexSeriesを返します。
func (c *chartClient) Fetch(ctx context.Context, timespan string) (any, error) {
	now := c.now().UTC()
	start, interval, err := window(timespan, now)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(now.Unix(), 10))
	q.Set("interval", interval)
	q.Set("includePrePost", "false")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(c.symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build chart request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart api returned %d", resp.StatusCode)
	}

	var body chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode chart response: %w", err)
	}
	if body.Chart.Error != nil {
		return nil, fmt.Errorf("chart api error %s: %s", body.Chart.Error.Code, body.Chart.Error.Description)
	}
	if len(body.Chart.Result) == 0 || len(body.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart api returned no data")
	}

	result := body.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close

	type point struct {
		ts    int64
		value float64
	}
	points := make([]point, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// 取引停止中などの欠損値はスキップ
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, point{ts: ts, value: *closes[i]})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("chart api returned no valid data points")
	}
	slices.SortStableFunc(points, func(a, b point) int { return cmp.Compare(a.ts, b.ts) })

	history := make([]entity.SeriesPoint, len(points))
	values := make([]decimal.Decimal, len(points))
	for i, p := range points {
		t := time.Unix(p.ts, 0).UTC()
		values[i] = decimal.NewFromFloat(p.value)
		history[i] = entity.SeriesPoint{
			Time:  t.Format(time.RFC3339),
			Date:  t.Format(entity.DateLayoutDay),
			Value: round(values[i]),
		}
	}
	return summarize(c.symbol, timespan, values[0], values[len(values)-1], history), nil
}

// summarize computes price, change and changePercent from the first and last close.
func summarize(symbol, timespan string, first, last decimal.Decimal, history []entity.SeriesPoint) entity.IndexSeries {
	change := last.Sub(first)
	pct := decimal.Zero
	if !first.IsZero() {
		pct = change.Div(first).Mul(decimal.NewFromInt(100))
	}
	return entity.IndexSeries{
		Symbol:        symbol,
		Timespan:      timespan,
		Price:         round(last),
		Change:        round(change),
		ChangePercent: round(pct),
		History:       history,
	}
}

func round(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
