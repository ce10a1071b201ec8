package openai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Commentator turns an analysis digest into a short plain-language note.
type Commentator struct {
	cli oa.Client
}

func NewCommentator(apiKey string, opts ...option.RequestOption) *Commentator {
	client := oa.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &Commentator{cli: client}
}

const commentaryPrompt = `You explain stock correlation reports to non-specialists.
You receive a monospace digest with a correlation matrix, a rolling correlation summary and optionally per-asset risk figures and portfolio weights.

Reply in at most 6 short bullet points:
- which tickers move together and which diversify each other
- whether the rolling correlation is stable or drifting
- what the risk figures (VaR, CVaR, Sharpe) say, if present
Do not give buy or sell advice. Do not invent numbers that are not in the digest.`

func (c *Commentator) Comment(ctx context.Context, digest string) (string, error) {
	digest = sanitizeDigest(digest)
	if digest == "" {
		return "", fmt.Errorf("empty digest")
	}
	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: "gpt-4",
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(commentaryPrompt),
			oa.UserMessage("Explain this report:\n" + digest),
		},
		MaxTokens: oa.Int(600),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var reURL = regexp.MustCompile(`https?://\S+`)

// sanitizeDigest strips links and caps the prompt size.
func sanitizeDigest(s string) string {
	s = strings.TrimSpace(reURL.ReplaceAllString(s, ""))
	if len(s) > 6000 {
		s = s[:6000]
	}
	return s
}
