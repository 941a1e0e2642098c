package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/unthinkable/alina-support/internal/domain"
	"github.com/unthinkable/alina-support/internal/observability"
)

// HandoffNotice opens every escalated response.
const HandoffNotice = "I see this issue is complex and requires specialized help. Your request has been escalated to a human agent, who has received the following conversation summary for a seamless handoff."

type Service struct {
	store      domain.HistoryStore
	gateway    domain.Gateway
	summarizer domain.Summarizer
	newID      func() string
}

func NewService(
	store domain.HistoryStore,
	gateway domain.Gateway,
	summarizer domain.Summarizer,
) *Service {
	return &Service{
		store:      store,
		gateway:    gateway,
		summarizer: summarizer,
		newID:      uuid.NewString,
	}
}

type ChatInput struct {
	SessionID domain.SessionID // empty mints a new session
	Query     string
}

type ChatOutput struct {
	SessionID         domain.SessionID
	Response          string
	IsEscalated       bool
	EscalationSummary string
}

// Chat runs one conversational turn. The steps are strictly sequential:
// load the window, drop it if the session was just escalated, persist the
// user turn, ask the gateway, then persist either the reply or the
// escalation summary.
func (s *Service) Chat(ctx context.Context, in ChatInput) (*ChatOutput, error) {
	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = domain.SessionID(s.newID())
	}

	ctx = observability.WithSessionID(ctx, string(sessionID))
	log := observability.LoggerFromContext(ctx)

	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	history, err := s.store.Read(ctx, sessionID)
	if err != nil {
		log.Error("failed to load history", "error", err)
		return nil, fmt.Errorf("loading history: %w", err)
	}

	// A hand-off closes the previous topic; the model starts fresh.
	if domain.IsEscalated(history) {
		log.Info("session was escalated, resetting context")
		history = nil
	}

	if err := s.store.Append(ctx, sessionID, domain.NewUserMessage(query)); err != nil {
		log.Error("failed to append user message", "error", err)
		return nil, fmt.Errorf("saving user message: %w", err)
	}

	reply := s.gateway.Converse(ctx, history, query)

	if reply.Escalate {
		// the model's own summary is only kept for the logs; the agent gets
		// the summarizer's sentence over the stored window
		log.Info("escalation requested", "model_summary", reply.Summary)
		return s.escalate(ctx, sessionID)
	}

	if err := s.store.Append(ctx, sessionID, domain.NewAssistantMessage(reply.Text)); err != nil {
		log.Error("failed to append assistant message", "error", err)
		return nil, fmt.Errorf("saving assistant message: %w", err)
	}

	log.Info("chat turn completed", "escalated", false)
	return &ChatOutput{
		SessionID: sessionID,
		Response:  reply.Text,
	}, nil
}

// escalate summarizes the full stored window, including the user turn
// just written, and flags the session for de-escalation on its next turn.
func (s *Service) escalate(ctx context.Context, sessionID domain.SessionID) (*ChatOutput, error) {
	log := observability.LoggerFromContext(ctx)

	full, err := s.store.Read(ctx, sessionID)
	if err != nil {
		log.Error("failed to reload history for summary", "error", err)
		return nil, fmt.Errorf("loading history for summary: %w", err)
	}

	summary := s.summarizer.Summarize(ctx, full)

	if err := s.store.Append(ctx, sessionID, domain.NewEscalationSummary(summary)); err != nil {
		log.Error("failed to append escalation summary", "error", err)
		return nil, fmt.Errorf("saving escalation summary: %w", err)
	}

	log.Info("chat turn completed", "escalated", true)
	return &ChatOutput{
		SessionID:         sessionID,
		Response:          HandoffNotice + "\n\n**Summary for Agent:**\n" + summary,
		IsEscalated:       true,
		EscalationSummary: summary,
	}, nil
}

type HistoryOutput struct {
	Messages    []domain.Message
	IsEscalated bool
}

// History returns the retained window of a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID domain.SessionID) (*HistoryOutput, error) {
	msgs, err := s.store.Read(ctx, sessionID)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("failed to read history",
			"session_id", sessionID,
			"error", err)
		return nil, err
	}

	return &HistoryOutput{
		Messages:    msgs,
		IsEscalated: domain.IsEscalated(msgs),
	}, nil
}

// ResetSession drops the whole log of a session.
func (s *Service) ResetSession(ctx context.Context, sessionID domain.SessionID) error {
	log := observability.LoggerFromContext(ctx).With("session_id", sessionID)

	if err := s.store.Clear(ctx, sessionID); err != nil {
		log.Error("failed to clear session", "error", err)
		return err
	}

	log.Info("session cleared")
	return nil
}
