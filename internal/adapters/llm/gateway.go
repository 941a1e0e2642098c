package llm

import (
	"context"
	"strings"
	"time"

	"github.com/unthinkable/alina-support/internal/domain"
	"github.com/unthinkable/alina-support/internal/observability"
)

// ApologyText is returned whenever the provider cannot produce a reply.
const ApologyText = "I apologize, Alina is currently experiencing connection issues. Please try again later."

// Gateway implements domain.Gateway on top of a Provider.
type Gateway struct {
	provider Provider
	timeout  time.Duration
}

func NewGateway(provider Provider, timeout time.Duration) *Gateway {
	return &Gateway{provider: provider, timeout: timeout}
}

func (g *Gateway) Converse(ctx context.Context, history []domain.Message, query string) domain.Reply {
	log := observability.LoggerFromContext(ctx).With("provider", g.provider.Name())

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.provider.Generate(ctx, Request{
		Turns:           BuildConversation(history, query),
		Temperature:     0,
		AllowEscalation: true,
	})
	if err != nil {
		log.Error("llm converse failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return domain.TextReply(ApologyText)
	}

	if resp.Escalation != nil {
		summary := strings.TrimSpace(resp.Escalation.Summary)
		if summary == "" {
			summary = defaultEscalationSummary
		}
		log.Info("llm requested escalation", "elapsed_ms", time.Since(start).Milliseconds())
		return domain.EscalationReply(summary)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		log.Error("llm returned empty text")
		return domain.TextReply(ApologyText)
	}

	log.Info("llm replied", "elapsed_ms", time.Since(start).Milliseconds())
	return domain.TextReply(text)
}
