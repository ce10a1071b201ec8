package telegram

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"correlationBot/internal/finance"
	"correlationBot/internal/storage"
)

var (
	// /corr S1 S2 ... [dates|lookback] [options]
	reCorr = regexp.MustCompile(`^/corr(?:@[\w_]+)?(?:\s|$)`)
	// /usage [days]
	reUsage = regexp.MustCompile(`^/usage(?:@[\w_]+)?(?:\s+(\d+))?$`)
	// /help
	reHelp = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

// Sender is the part of the Telegram API the handlers use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Runner executes one analysis.
type Runner interface {
	Run(ctx context.Context, req finance.Request) (*finance.Result, error)
}

// Commenter explains a digest in plain language.
type Commenter interface {
	Comment(ctx context.Context, digest string) (string, error)
}

// Deps are the services a bot needs. Store and Commenter may be nil.
type Deps struct {
	Runner    Runner
	Store     *storage.Store
	Commenter Commenter
	Defaults  finance.RequestDefaults
}

type Handlers struct {
	api   Sender
	deps  Deps
	usage *finance.UsageAnalytics
	log   zerolog.Logger
	now   func() time.Time
}

func NewHandlers(api Sender, deps Deps, log zerolog.Logger) *Handlers {
	return &Handlers{
		api:   api,
		deps:  deps,
		usage: finance.NewUsageAnalytics(),
		log:   log,
		now:   time.Now,
	}
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	txt := strings.TrimSpace(m.Text)
	switch {
	case reCorr.MatchString(txt):
		h.handleCorr(m.Chat.ID, txt)

	case reUsage.MatchString(txt):
		days := 7
		if g := reUsage.FindStringSubmatch(txt); len(g) == 2 && g[1] != "" {
			days, _ = strconv.Atoi(g[1])
			if days < 1 {
				days = 1
			}
			if days > 90 {
				days = 90
			}
		}
		h.handleUsage(m.Chat.ID, days)

	case reHelp.MatchString(txt):
		h.handleHelp(m.Chat.ID)
	}
}

func (h *Handlers) handleCorr(chatID int64, txt string) {
	cmd, err := finance.ParseAnalysisCommand(txt, h.now(), h.deps.Defaults)
	if err != nil {
		h.reply(chatID, "Couldn’t parse request: "+err.Error()+"\nTry /help")
		return
	}
	req := cmd.Request

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()
	res, err := h.deps.Runner.Run(ctx, req)
	h.record(chatID, res, req, err)
	if err != nil {
		h.log.Warn().Err(err).Strs("symbols", req.Symbols).Msg("analysis failed")
		h.reply(chatID, "Analysis failed: "+err.Error())
		return
	}

	digest := finance.FormatSummary(res)
	msg := tgbotapi.NewMessage(chatID, "```\n"+digest+"```")
	msg.ParseMode = tgbotapi.ModeMarkdown
	h.send(msg)

	name := strings.Join(res.Prices.Symbols, "_")
	if img, err := finance.RenderCorrelationTable(res.Correlation); err == nil {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name + "_corr.png", Bytes: img})
		photo.Caption = "Correlation • " + strings.ToUpper(string(req.Frequency))
		h.send(photo)
	} else {
		h.log.Debug().Err(err).Msg("table render skipped")
	}

	var csv bytes.Buffer
	if err := finance.WriteCorrelationCSV(&csv, res.Correlation); err == nil {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "correlation_matrix.csv", Bytes: csv.Bytes()})
		h.send(doc)
	}

	if len(res.Rolling) > 0 {
		if img, err := finance.RenderRollingChart(res.Pair, req.Window, res.Rolling); err == nil {
			h.send(tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name + "_rolling.png", Bytes: img}))
		} else {
			h.log.Debug().Err(err).Msg("rolling chart skipped")
		}
	}

	if res.Portfolio != nil {
		if img, err := finance.RenderPortfolioChart(res.Portfolio); err == nil {
			h.send(tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name + "_portfolio.png", Bytes: img}))
		}
		if img, err := finance.RenderWeightsChart(res.Portfolio.Weights); err == nil {
			h.send(tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name + "_weights.png", Bytes: img}))
		}
	}

	if cmd.Explain {
		h.explain(ctx, chatID, digest)
	}
}

func (h *Handlers) explain(ctx context.Context, chatID int64, digest string) {
	if h.deps.Commenter == nil {
		h.reply(chatID, "Commentary is not configured on this bot.")
		return
	}
	out, err := h.deps.Commenter.Comment(ctx, digest)
	if err != nil {
		h.reply(chatID, "Commentary failed: "+err.Error())
		return
	}
	h.reply(chatID, out)
}

func (h *Handlers) record(chatID int64, res *finance.Result, req finance.Request, runErr error) {
	if h.deps.Store == nil {
		return
	}
	run := storage.Run{ChatID: chatID, Command: "corr", Symbols: finance.NormalizeSymbols(req.Symbols), Status: storage.StatusOK}
	if res != nil {
		run.ID = res.RunID
	} else {
		run.ID = fmt.Sprintf("failed-%d-%d", chatID, h.now().UnixNano())
	}
	if runErr != nil {
		run.Status = storage.StatusFailed
	}
	run.TS = h.now()
	if err := h.deps.Store.RecordRun(run); err != nil {
		h.log.Warn().Err(err).Msg("usage log write failed")
	}
}

func (h *Handlers) handleUsage(chatID int64, days int) {
	if h.deps.Store == nil {
		h.reply(chatID, "Usage log is not enabled.")
		return
	}
	since := h.now().Add(-time.Duration(days) * 24 * time.Hour).Unix()
	stats, err := h.deps.Store.UsageStats(since)
	if err != nil {
		h.reply(chatID, "Usage stats failed: "+err.Error())
		return
	}
	h.reply(chatID, h.usage.FormatUsageStatsText(stats, days))
	if len(stats) == 0 {
		return
	}
	if img, err := h.usage.MakeUsageChart(stats, days); err == nil {
		h.send(tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "usage.png", Bytes: img}))
	}

	bucket := int64(24 * 3600)
	if days <= 1 {
		bucket = 3600
	}
	series, err := h.deps.Store.UsageTimeSeries(since, bucket)
	if err != nil {
		h.log.Warn().Err(err).Msg("usage time series failed")
		return
	}
	if img, err := h.usage.MakeUsageTimeSeriesChart(series, days); err == nil {
		h.send(tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "usage_timeline.png", Bytes: img}))
	}
}

func (h *Handlers) handleHelp(chatID int64) {
	help := "Commands\n\n" +
		"- /corr S1 S2 ... [START [END] | 90d|12w|6m|2y] [freq=daily|monthly|quarterly|yearly] [window=N] [pair=A,B] [rf=0.04] [risk] [explain]\n" +
		"  Correlation matrix, rolling correlation of a pair and a CSV export. `risk` adds VaR/CVaR/Sharpe and max-Sharpe weights, `explain` adds a short commentary.\n" +
		"- /usage [days] - Run statistics for the last N days (default: 7, max: 90)\n" +
		"\nDates are YYYY-MM-DD, end is exclusive. Default range: last year, default window: " +
		strconv.Itoa(h.deps.Defaults.Window) + " days."
	h.reply(chatID, help)
}

func (h *Handlers) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handlers) send(c tgbotapi.Chattable) {
	if _, err := h.api.Send(c); err != nil {
		h.log.Warn().Err(err).Msg("telegram send failed")
	}
}
