package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"correlationBot/internal/finance"
	"correlationBot/internal/storage"
)

type analysisRequest struct {
	Symbols      []string `json:"symbols"`
	Start        string   `json:"start,omitempty"` // YYYY-MM-DD
	End          string   `json:"end,omitempty"`   // YYYY-MM-DD, exclusive
	Frequency    string   `json:"frequency,omitempty"`
	Window       int      `json:"window,omitempty"`
	Pair         []string `json:"pair,omitempty"`
	Risk         bool     `json:"risk,omitempty"`
	RiskFreeRate *float64 `json:"risk_free_rate,omitempty"`
}

type matrixResponse struct {
	Symbols      []string     `json:"symbols"`
	Values       [][]*float64 `json:"values"` // null when undefined
	Observations int          `json:"observations"`
}

type pointResponse struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

type rollingResponse struct {
	Pair   [2]string       `json:"pair"`
	Window int             `json:"window"`
	Points []pointResponse `json:"points"`
}

type riskResponse struct {
	Assets  []finance.AssetRisk `json:"assets"`
	Weights map[string]float64  `json:"weights"`
}

type portfolioResponse struct {
	Cumulative []pointResponse          `json:"cumulative"`
	Drawdown   []pointResponse          `json:"drawdown"`
	Monthly    []pointResponse          `json:"monthly"`
	Rebalanced []pointResponse          `json:"rebalanced"`
	Stats      *finance.PortfolioStats `json:"stats,omitempty"`
}

type analysisResponse struct {
	RunID       string                    `json:"run_id"`
	Symbols     []string                  `json:"symbols"`
	Start       string                    `json:"start"`
	End         string                    `json:"end"`
	Frequency   string                    `json:"frequency"`
	TradingDays int                       `json:"trading_days"`
	Correlation matrixResponse            `json:"correlation"`
	Breakdown   map[string]matrixResponse `json:"breakdown"`
	Rolling     *rollingResponse          `json:"rolling,omitempty"`
	Risk        *riskResponse             `json:"risk,omitempty"`
	Portfolio   *portfolioResponse        `json:"portfolio,omitempty"`
	Warnings    []finance.Warning         `json:"warnings"`
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	res, ok := s.run(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, toResponse(res))
}

func (s *Server) handleCorrelationCSV(w http.ResponseWriter, r *http.Request) {
	res, ok := s.run(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := finance.WriteCorrelationCSV(&buf, res.Correlation); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="correlation_matrix.csv"`)
	w.Header().Set("X-Run-ID", res.RunID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// run decodes the body, executes the pipeline and writes any error response.
func (s *Server) run(w http.ResponseWriter, r *http.Request) (*finance.Result, bool) {
	var body analysisRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return nil, false
	}
	req, err := s.toRequest(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	res, err := s.runner.Run(r.Context(), req)
	s.record(res, req, err)
	if err != nil {
		status := http.StatusInternalServerError
		if finance.IsFatal(err) {
			status = http.StatusUnprocessableEntity
		}
		s.writeError(w, status, err.Error())
		return nil, false
	}
	return res, true
}

func (s *Server) toRequest(body analysisRequest) (finance.Request, error) {
	d := s.opts.Defaults
	req := finance.Request{
		Symbols:      body.Symbols,
		Frequency:    finance.Daily,
		Window:       d.Window,
		Risk:         body.Risk,
		RiskFreeRate: d.RiskFreeRate,
	}
	if body.Frequency != "" {
		f, err := finance.ParseFrequency(body.Frequency)
		if err != nil {
			return req, err
		}
		req.Frequency = f
	}
	if body.Window != 0 {
		if body.Window < 2 {
			return req, fmt.Errorf("window %d: %w", body.Window, finance.ErrInvalidWindow)
		}
		req.Window = body.Window
	}
	if body.RiskFreeRate != nil {
		req.RiskFreeRate = *body.RiskFreeRate
	}
	switch len(body.Pair) {
	case 0:
	case 2:
		req.Pair = [2]string{strings.ToUpper(body.Pair[0]), strings.ToUpper(body.Pair[1])}
	default:
		return req, fmt.Errorf("pair must name exactly two symbols")
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	req.End = today.AddDate(0, 0, 1)
	if body.End != "" {
		t, err := time.Parse(time.DateOnly, body.End)
		if err != nil {
			return req, fmt.Errorf("invalid end date %q", body.End)
		}
		req.End = t
	}
	lookback := d.LookbackDays
	if lookback <= 0 {
		lookback = 365
	}
	req.Start = req.End.AddDate(0, 0, -lookback)
	if body.Start != "" {
		t, err := time.Parse(time.DateOnly, body.Start)
		if err != nil {
			return req, fmt.Errorf("invalid start date %q", body.Start)
		}
		req.Start = t
	}
	if !req.Start.Before(req.End) {
		return req, fmt.Errorf("start date must be before end date")
	}
	return req, nil
}

func (s *Server) record(res *finance.Result, req finance.Request, runErr error) {
	if s.opts.Store == nil {
		return
	}
	run := storage.Run{Command: "api", Symbols: finance.NormalizeSymbols(req.Symbols), Status: storage.StatusOK, TS: s.now()}
	if res != nil {
		run.ID = res.RunID
	} else {
		run.ID = fmt.Sprintf("api-failed-%d", s.now().UnixNano())
	}
	if runErr != nil {
		run.Status = storage.StatusFailed
	}
	if err := s.opts.Store.RecordRun(run); err != nil {
		s.log.Warn().Err(err).Msg("usage log write failed")
	}
}

func toResponse(res *finance.Result) analysisResponse {
	out := analysisResponse{
		RunID:       res.RunID,
		Symbols:     res.Prices.Symbols,
		Frequency:   string(res.Request.Frequency),
		TradingDays: res.Prices.Len(),
		Correlation: toMatrix(res.Correlation),
		Breakdown:   map[string]matrixResponse{},
		Warnings:    res.Warnings,
	}
	if n := res.Prices.Len(); n > 0 {
		out.Start = res.Prices.Dates[0].Format(time.DateOnly)
		out.End = res.Prices.Dates[n-1].Format(time.DateOnly)
	}
	if out.Warnings == nil {
		out.Warnings = []finance.Warning{}
	}
	for f, m := range res.Breakdown {
		out.Breakdown[string(f)] = toMatrix(m)
	}
	if res.Rolling != nil {
		out.Rolling = &rollingResponse{Pair: res.Pair, Window: res.Request.Window, Points: toPoints(res.Rolling)}
	}
	if res.Risk != nil {
		out.Risk = &riskResponse{Assets: res.Risk.Assets, Weights: res.Risk.Weights}
	}
	if p := res.Portfolio; p != nil {
		out.Portfolio = &portfolioResponse{
			Cumulative: toPoints(p.Cumulative),
			Drawdown:   toPoints(p.Drawdown),
			Monthly:    toPoints(p.Monthly),
			Rebalanced: toPoints(p.Rebalanced),
			Stats:      p.Stats,
		}
	}
	return out
}

func toMatrix(m *finance.CorrelationMatrix) matrixResponse {
	out := matrixResponse{Symbols: m.Symbols, Observations: m.Observations, Values: make([][]*float64, len(m.Values))}
	for i, row := range m.Values {
		out.Values[i] = make([]*float64, len(row))
		for j, v := range row {
			out.Values[i][j] = finite(v)
		}
	}
	return out
}

func toPoints(pts []finance.Point) []pointResponse {
	out := make([]pointResponse, len(pts))
	for i, p := range pts {
		out[i] = pointResponse{Date: p.Date.Format(time.DateOnly), Value: finite(p.Value)}
	}
	return out
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
