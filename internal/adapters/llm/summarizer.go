package llm

import (
	"context"
	"strings"
	"time"

	"github.com/unthinkable/alina-support/internal/domain"
	"github.com/unthinkable/alina-support/internal/observability"
)

const (
	NoHistorySummary = "No conversation history available."
	FailedSummary    = "Summary generation failed."
)

// Summarizer implements domain.Summarizer on top of a Provider.
type Summarizer struct {
	provider Provider
	timeout  time.Duration
}

func NewSummarizer(provider Provider, timeout time.Duration) *Summarizer {
	return &Summarizer{provider: provider, timeout: timeout}
}

func (s *Summarizer) Summarize(ctx context.Context, history []domain.Message) string {
	if len(history) == 0 {
		return NoHistorySummary
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.provider.Generate(ctx, Request{
		Turns:       []Turn{{Role: TurnUser, Text: BuildSummaryPrompt(history)}},
		Temperature: 0,
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Error("summary generation failed",
			"provider", s.provider.Name(),
			"error", err)
		return FailedSummary
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return FailedSummary
	}
	return text
}
