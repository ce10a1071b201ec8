package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Quoter retrieves daily close history for one symbol.
type Quoter interface {
	DailyCloses(ctx context.Context, symbol string, start, end time.Time) (*PriceSeries, error)
}

// WarningKind classifies non-fatal problems reported alongside a result.
type WarningKind string

const (
	WarnDataUnavailable      WarningKind = "data_unavailable"
	WarnCloseSubstituted     WarningKind = "close_substituted"
	WarnAmbiguousInput       WarningKind = "ambiguous_input"
	WarnAnalyticsUnavailable WarningKind = "analytics_unavailable"
)

// Warning is a stage-local problem that did not stop the run.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Symbol  string      `json:"symbol,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Symbol == "" {
		return w.Message
	}
	return w.Symbol + ": " + w.Message
}

// FetchOptions bounds the batch fetch.
type FetchOptions struct {
	Workers int
	// Timeout applies to each attempt; zero leaves it to the quoter.
	Timeout time.Duration
}

// FetchAll fetches every symbol with at most opts.Workers calls in flight.
// A symbol that fails is reported as a warning and left out of the map;
// errors other than ErrNoData and permanent rejections get one retry. It
// returns once every fetch has completed or failed.
func FetchAll(ctx context.Context, q Quoter, symbols []string, start, end time.Time, opts FetchOptions, log zerolog.Logger) (map[string]*PriceSeries, []Warning) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	results := make([]*PriceSeries, len(symbols))
	failures := make([]error, len(symbols))

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			results[i], failures[i] = fetchWithRetry(ctx, q, sym, start, end, opts.Timeout)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]*PriceSeries, len(symbols))
	var warnings []Warning
	for i, sym := range symbols {
		if err := failures[i]; err != nil {
			log.Warn().Err(err).Str("symbol", sym).Msg("symbol skipped")
			warnings = append(warnings, Warning{Kind: WarnDataUnavailable, Symbol: sym, Message: failureMessage(err)})
			continue
		}
		s := results[i]
		if s.Len() == 0 {
			warnings = append(warnings, Warning{Kind: WarnDataUnavailable, Symbol: sym, Message: "no price rows returned"})
			continue
		}
		if !s.Adjusted {
			warnings = append(warnings, Warning{Kind: WarnCloseSubstituted, Symbol: sym, Message: "adjusted close missing, using close"})
		}
		out[sym] = s
	}
	return out, warnings
}

func fetchWithRetry(ctx context.Context, q Quoter, sym string, start, end time.Time, timeout time.Duration) (*PriceSeries, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		s, err := fetchOnce(ctx, q, sym, start, end, timeout)
		if err == nil {
			return s, nil
		}
		lastErr = err
		if errors.Is(err, ErrNoData) || errors.Is(err, errPermanent) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func fetchOnce(ctx context.Context, q Quoter, sym string, start, end time.Time, timeout time.Duration) (*PriceSeries, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return q.DailyCloses(ctx, sym, start, end)
}

func failureMessage(err error) string {
	if errors.Is(err, ErrNoData) {
		return "no data returned for this symbol"
	}
	return fmt.Sprintf("fetch failed: %v", err)
}
