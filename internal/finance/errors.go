package finance

import "errors"

var (
	// ErrNoData means the provider returned no usable rows for a symbol,
	// or does not know the instrument.
	ErrNoData = errors.New("no data")
	// ErrNoUsableData means every requested symbol failed to fetch.
	ErrNoUsableData = errors.New("no usable data: every symbol failed to fetch")
	// ErrInsufficientOverlap means the fetched series share no trading date.
	ErrInsufficientOverlap = errors.New("insufficient overlap: symbols share no common dates")
	// ErrNoSymbols is returned for a request without any ticker.
	ErrNoSymbols = errors.New("no symbols requested")

	ErrSameSymbol    = errors.New("rolling correlation needs two distinct symbols")
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrInvalidWindow = errors.New("rolling window must be at least 2")

	// ErrAnalyticsUnavailable is reported by analyzers that cannot compute risk metrics.
	ErrAnalyticsUnavailable = errors.New("portfolio analytics unavailable")
)

// IsFatal reports whether err stops a run before any output can be produced.
func IsFatal(err error) bool {
	return errors.Is(err, ErrNoSymbols) || errors.Is(err, ErrNoUsableData) || errors.Is(err, ErrInsufficientOverlap)
}
