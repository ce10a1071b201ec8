package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const yahooUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"

var (
	// errPermanent marks responses that retrying will not fix.
	errPermanent = errors.New("permanent")
	// errRejected marks 401/403 crumb rejections; the spark endpoint may still answer.
	errRejected = errors.New("rejected")
)

// YahooClient fetches daily close history from the Yahoo Finance chart API.
type YahooClient struct {
	hc       *http.Client
	bases    []string
	backoffs []time.Duration
	limiter  *rate.Limiter
	now      func() time.Time
	log      zerolog.Logger
}

// YahooOption customizes a YahooClient.
type YahooOption func(*YahooClient)

// WithBaseURLs replaces the default query1/query2 hosts.
func WithBaseURLs(urls ...string) YahooOption {
	return func(c *YahooClient) { c.bases = urls }
}

// WithBackoffs replaces the wait schedule between retry rounds.
func WithBackoffs(b ...time.Duration) YahooOption {
	return func(c *YahooClient) { c.backoffs = b }
}

// WithRateLimit caps outgoing requests per second across all workers.
func WithRateLimit(perSecond float64, burst int) YahooOption {
	return func(c *YahooClient) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithHTTPClient sets the HTTP client used for every call.
func WithHTTPClient(hc *http.Client) YahooOption {
	return func(c *YahooClient) { c.hc = hc }
}

// NewYahooClient builds a client with host rotation and a short backoff schedule.
func NewYahooClient(log zerolog.Logger, opts ...YahooOption) *YahooClient {
	c := &YahooClient{
		hc:       &http.Client{Timeout: 15 * time.Second},
		bases:    []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"},
		backoffs: []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(5), 5),
		now:      time.Now,
		log:      log.With().Str("component", "yahoo").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DailyCloses returns adjusted daily closes for symbol in [start, end).
// When the provider omits adjusted closes the raw close is used and the
// series is marked Adjusted=false. Unknown instruments and empty answers
// yield ErrNoData.
func (c *YahooClient) DailyCloses(ctx context.Context, symbol string, start, end time.Time) (*PriceSeries, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	start, end = dateOf(start), dateOf(end)
	if !start.Before(end) {
		return nil, fmt.Errorf("%s: empty range %s..%s: %w", symbol, start.Format(time.DateOnly), end.Format(time.DateOnly), ErrNoData)
	}

	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "div,splits")
	q.Set("includeAdjustedClose", "true")
	path := "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + q.Encode()

	var yc yahooChartResp
	err := c.getJSON(ctx, path, symbol, &yc)
	switch {
	case err == nil:
		if yc.Chart.Error != nil && yc.Chart.Error.Code != "" {
			return nil, fmt.Errorf("%s: %s: %w", symbol, yc.Chart.Error.Description, ErrNoData)
		}
		if len(yc.Chart.Result) == 0 {
			return nil, fmt.Errorf("%s: empty chart result: %w", symbol, ErrNoData)
		}
		return seriesFromChart(symbol, yc.Chart.Result[0], start, end)
	case errors.Is(err, ErrNoData), errors.Is(err, errPermanent), ctx.Err() != nil:
		return nil, err
	}

	// Spark fallback only carries raw closes.
	c.log.Warn().Err(err).Str("symbol", symbol).Msg("chart endpoint failed, trying spark")
	series, sparkErr := c.sparkCloses(ctx, symbol, start, end)
	if sparkErr != nil {
		if errors.Is(sparkErr, ErrNoData) {
			return nil, sparkErr
		}
		return nil, err
	}
	return series, nil
}

func (c *YahooClient) sparkCloses(ctx context.Context, symbol string, start, end time.Time) (*PriceSeries, error) {
	q := url.Values{}
	q.Set("symbols", symbol)
	q.Set("range", sparkRange(c.now().Sub(start)))
	q.Set("interval", "1d")
	var sp yahooSparkResp
	if err := c.getJSON(ctx, "/v7/finance/spark?"+q.Encode(), symbol, &sp); err != nil {
		return nil, err
	}
	if len(sp.Spark.Result) == 0 || len(sp.Spark.Result[0].Response) == 0 {
		return nil, fmt.Errorf("%s: empty spark result: %w", symbol, ErrNoData)
	}
	res := sp.Spark.Result[0].Response[0]
	res.Indicators.AdjClose = nil
	return seriesFromChart(symbol, res, start, end)
}

// seriesFromChart prefers adjusted closes and falls back to raw closes.
func seriesFromChart(symbol string, res yahooChartResult, start, end time.Time) (*PriceSeries, error) {
	loc := exchangeLocation(res.Meta.ExchangeTimezoneName, res.Meta.GmtOffset)
	var raw []*float64
	adjusted := false
	if len(res.Indicators.AdjClose) > 0 && hasValues(res.Indicators.AdjClose[0].AdjClose) {
		raw = res.Indicators.AdjClose[0].AdjClose
		adjusted = true
	} else if len(res.Indicators.Quote) > 0 {
		raw = res.Indicators.Quote[0].Close
	}
	dates, prices := cleanDaily(res.Timestamp, raw, loc, start, end)
	if len(dates) == 0 {
		return nil, fmt.Errorf("%s: no rows between %s and %s: %w", symbol, start.Format(time.DateOnly), end.Format(time.DateOnly), ErrNoData)
	}
	return &PriceSeries{Symbol: symbol, Dates: dates, Prices: prices, Adjusted: adjusted}, nil
}

// getJSON walks every host for each backoff round until one answers with JSON.
// A round where every host rejected the request is not retried.
func (c *YahooClient) getJSON(ctx context.Context, path, symbol string, out any) error {
	var lastErr error
	for attempt := 0; attempt < len(c.backoffs)+1; attempt++ {
		rejected := 0
		for _, base := range c.bases {
			err := c.getOnce(ctx, base+path, symbol, out)
			if err == nil {
				return nil
			}
			if errors.Is(err, ErrNoData) || errors.Is(err, errPermanent) || ctx.Err() != nil {
				return err
			}
			if errors.Is(err, errRejected) {
				rejected++
			}
			lastErr = err
		}
		if rejected == len(c.bases) {
			return lastErr
		}
		if attempt < len(c.backoffs) {
			c.log.Debug().Err(lastErr).Str("symbol", symbol).Int("attempt", attempt+1).Dur("wait", c.backoffs[attempt]).Msg("retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoffs[attempt]):
			}
		}
	}
	return lastErr
}

func (c *YahooClient) getOnce(ctx context.Context, u, symbol string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}
	req.Header.Set("User-Agent", yahooUserAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/history", symbol))
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("failed to read yahoo response: %w", readErr)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: unknown instrument: %w", symbol, ErrNoData)
	case resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests"):
		return fmt.Errorf("yahoo %s returned 429: Edge: Too Many Requests", req.URL.Host)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: yahoo %s returned %d: %s", errRejected, req.URL.Host, resp.StatusCode, preview(body))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: yahoo %s returned %d: %s", errPermanent, req.URL.Host, resp.StatusCode, preview(body))
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("yahoo %s returned %d: %s", req.URL.Host, resp.StatusCode, preview(body))
	}
	if strings.HasPrefix(string(body), "<") || strings.HasPrefix(string(body), "Edge:") {
		return fmt.Errorf("yahoo returned non-json body: %s", preview(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse yahoo json: %v; body: %s", err, preview(body))
	}
	return nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

// sparkRange picks the smallest spark range covering a lookback.
func sparkRange(lookback time.Duration) string {
	day := 24 * time.Hour
	switch {
	case lookback <= 31*day:
		return "1mo"
	case lookback <= 92*day:
		return "3mo"
	case lookback <= 183*day:
		return "6mo"
	case lookback <= 366*day:
		return "1y"
	case lookback <= 731*day:
		return "2y"
	case lookback <= 5*366*day:
		return "5y"
	case lookback <= 10*366*day:
		return "10y"
	default:
		return "max"
	}
}
