package finance

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const maxSymbols = 20

var (
	reSymbol   = regexp.MustCompile(`^[A-Za-z0-9.^=_\-]+$`)
	reLookback = regexp.MustCompile(`^(\d+)([dwmy])$`)
	reCommand  = regexp.MustCompile(`^/\w+(?:@[\w_]+)?`)
)

// RequestDefaults fills the parts of a command the user left out.
type RequestDefaults struct {
	Window       int
	LookbackDays int
	RiskFreeRate float64
}

// Command is a parsed analysis command.
type Command struct {
	Request Request
	Explain bool
}

// ParseAnalysisCommand parses a correlation command string
// Format: /corr AAPL MSFT [2023-01-01 [2024-01-01] | 1y] [freq=monthly] [window=60] [pair=AAPL,MSFT] [rf=0.04] [risk] [explain]
func ParseAnalysisCommand(input string, now time.Time, d RequestDefaults) (*Command, error) {
	input = strings.TrimSpace(input)
	input = strings.TrimSpace(reCommand.ReplaceAllString(input, ""))

	cmd := &Command{Request: Request{
		Frequency:    Daily,
		Window:       d.Window,
		RiskFreeRate: d.RiskFreeRate,
	}}
	req := &cmd.Request
	var dates []time.Time
	lookbackDays := d.LookbackDays
	if lookbackDays <= 0 {
		lookbackDays = 365
	}

	for _, tok := range strings.Fields(input) {
		lower := strings.ToLower(tok)
		key, val, hasVal := strings.Cut(lower, "=")
		switch {
		case hasVal:
			if err := applyOption(req, key, val); err != nil {
				return nil, err
			}
		case lower == "risk":
			req.Risk = true
		case lower == "explain":
			cmd.Explain = true
		case reLookback.MatchString(lower):
			days, err := parseLookback(lower)
			if err != nil {
				return nil, err
			}
			lookbackDays = days
		case isDate(tok):
			t, _ := time.Parse(time.DateOnly, tok)
			dates = append(dates, t)
		case reSymbol.MatchString(tok):
			req.Symbols = append(req.Symbols, tok)
		default:
			return nil, fmt.Errorf("unrecognized argument %q", tok)
		}
	}

	req.Symbols = NormalizeSymbols(req.Symbols)
	if len(req.Symbols) < 2 {
		return nil, fmt.Errorf("insufficient arguments: need at least two symbols, e.g. /corr SPY AAPL 1y")
	}
	if len(req.Symbols) > maxSymbols {
		return nil, fmt.Errorf("too many symbols: %d (max %d)", len(req.Symbols), maxSymbols)
	}

	switch len(dates) {
	case 0:
		req.End = dateOf(now).AddDate(0, 0, 1)
		req.Start = req.End.AddDate(0, 0, -lookbackDays)
	case 1:
		req.Start = dates[0]
		req.End = dateOf(now).AddDate(0, 0, 1)
	case 2:
		req.Start, req.End = dates[0], dates[1]
	default:
		return nil, fmt.Errorf("too many dates: give a start and optionally an end")
	}
	if !req.Start.Before(req.End) {
		return nil, fmt.Errorf("start date %s must be before end date %s", req.Start.Format(time.DateOnly), req.End.Format(time.DateOnly))
	}

	if req.Pair[0] != "" {
		for _, sym := range req.Pair {
			if !containsSymbol(req.Symbols, sym) {
				return nil, fmt.Errorf("pair symbol %s is not in the symbol list", sym)
			}
		}
	}
	return cmd, nil
}

func applyOption(req *Request, key, val string) error {
	switch key {
	case "freq", "frequency":
		f, err := ParseFrequency(val)
		if err != nil {
			return err
		}
		req.Frequency = f
	case "window", "w":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid window %q: %w", val, err)
		}
		if n < 2 {
			return fmt.Errorf("window %d: %w", n, ErrInvalidWindow)
		}
		req.Window = n
	case "pair":
		a, b, ok := strings.Cut(val, ",")
		if !ok {
			return fmt.Errorf("invalid pair %q: use pair=AAPL,MSFT", val)
		}
		// Same symbol twice is passed through so the run reports it.
		req.Pair = [2]string{strings.ToUpper(strings.TrimSpace(a)), strings.ToUpper(strings.TrimSpace(b))}
	case "rf":
		rf, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid risk-free rate %q: %w", val, err)
		}
		if rf < -0.5 || rf > 0.5 {
			return fmt.Errorf("risk-free rate %.3f out of range [-0.5, 0.5]", rf)
		}
		req.RiskFreeRate = rf
	default:
		return fmt.Errorf("unknown option %q", key)
	}
	return nil
}

// parseLookback converts 90d, 12w, 6m or 2y into calendar days.
func parseLookback(s string) (int, error) {
	g := reLookback.FindStringSubmatch(s)
	n, err := strconv.Atoi(g[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid window format: %s (use format like 90d, 12w, 6m, 2y)", s)
	}
	switch g[2] {
	case "d":
		return n, nil
	case "w":
		return n * 7, nil
	case "m":
		return n * 30, nil // Approximate days
	default:
		return n * 365, nil
	}
}

func isDate(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

func containsSymbol(symbols []string, sym string) bool {
	for _, s := range symbols {
		if s == sym {
			return true
		}
	}
	return false
}
