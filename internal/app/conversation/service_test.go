package conversation_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unthinkable/alina-support/internal/adapters/llm"
	"github.com/unthinkable/alina-support/internal/adapters/storage/memory"
	"github.com/unthinkable/alina-support/internal/app/conversation"
	"github.com/unthinkable/alina-support/internal/domain"
	"github.com/unthinkable/alina-support/internal/observability"
)

type stubGateway struct {
	reply     domain.Reply
	calls     int
	histories [][]domain.Message
	queries   []string
}

func (g *stubGateway) Converse(_ context.Context, history []domain.Message, query string) domain.Reply {
	g.calls++
	g.histories = append(g.histories, append([]domain.Message(nil), history...))
	g.queries = append(g.queries, query)
	return g.reply
}

type stubSummarizer struct {
	summary string
	got     []domain.Message
}

func (s *stubSummarizer) Summarize(_ context.Context, history []domain.Message) string {
	s.got = append([]domain.Message(nil), history...)
	return s.summary
}

// countingStore records mutations and can fail on demand.
type countingStore struct {
	domain.HistoryStore
	appends int
	failOn  string
}

func (c *countingStore) Append(ctx context.Context, id domain.SessionID, m domain.Message) error {
	if c.failOn == "append" {
		return domain.StorageFailure("append", errors.New("connection refused"))
	}
	c.appends++
	return c.HistoryStore.Append(ctx, id, m)
}

func (c *countingStore) Read(ctx context.Context, id domain.SessionID) ([]domain.Message, error) {
	if c.failOn == "read" {
		return nil, domain.StorageFailure("read", errors.New("connection refused"))
	}
	return c.HistoryStore.Read(ctx, id)
}

type fixture struct {
	store      *countingStore
	gateway    *stubGateway
	summarizer *stubSummarizer
	svc        *conversation.Service
}

func newFixture() *fixture {
	f := &fixture{
		store:      &countingStore{HistoryStore: memory.NewHistoryStore(domain.DefaultMaxMessages)},
		gateway:    &stubGateway{reply: domain.TextReply("Happy to help!")},
		summarizer: &stubSummarizer{summary: "User reports account compromise"},
	}
	f.svc = conversation.NewService(f.store, f.gateway, f.summarizer)
	return f
}

func (f *fixture) stored(t *testing.T, id domain.SessionID) []domain.Message {
	t.Helper()
	msgs, err := f.store.Read(context.Background(), id)
	require.NoError(t, err)
	return msgs
}

func TestChat_MintsSessionID(t *testing.T) {
	f := newFixture()

	out, err := f.svc.Chat(context.Background(), conversation.ChatInput{Query: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.SessionID)

	other, err := f.svc.Chat(context.Background(), conversation.ChatInput{Query: "hi"})
	require.NoError(t, err)
	assert.NotEqual(t, out.SessionID, other.SessionID)
}

func TestChat_UsesSuppliedSessionVerbatim(t *testing.T) {
	f := newFixture()

	out, err := f.svc.Chat(context.Background(), conversation.ChatInput{SessionID: "  tab-1 ", Query: "hi"})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionID("  tab-1 "), out.SessionID)
}

func TestChat_NormalTurn(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	out, err := f.svc.Chat(ctx, conversation.ChatInput{SessionID: "s1", Query: "  What are your hours?  "})
	require.NoError(t, err)

	assert.False(t, out.IsEscalated)
	assert.Equal(t, "Happy to help!", out.Response)
	assert.Empty(t, out.EscalationSummary)

	assert.Equal(t, []domain.Message{
		domain.NewUserMessage("What are your hours?"),
		domain.NewAssistantMessage("Happy to help!"),
	}, f.stored(t, "s1"))
	assert.Equal(t, "What are your hours?", f.gateway.queries[0])
	assert.Empty(t, f.gateway.histories[0])
}

func TestChat_GatewaySeesHistoryBeforeUserTurn(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Chat(ctx, conversation.ChatInput{SessionID: "s1", Query: "first"})
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, conversation.ChatInput{SessionID: "s1", Query: "second"})
	require.NoError(t, err)

	assert.Equal(t, []domain.Message{
		domain.NewUserMessage("first"),
		domain.NewAssistantMessage("Happy to help!"),
	}, f.gateway.histories[1])
}

func TestChat_EscalationScenario(t *testing.T) {
	f := newFixture()
	f.gateway.reply = domain.EscalationReply("Customer is locked out of their account")
	ctx := context.Background()

	out, err := f.svc.Chat(ctx, conversation.ChatInput{SessionID: "s1", Query: "My account was hacked, escalate now"})
	require.NoError(t, err)

	assert.True(t, out.IsEscalated)
	assert.Equal(t, "User reports account compromise", out.EscalationSummary)
	assert.True(t, strings.HasPrefix(out.Response, conversation.HandoffNotice))
	assert.Equal(t, conversation.HandoffNotice+"\n\n**Summary for Agent:**\nUser reports account compromise", out.Response)
	assert.NotContains(t, out.Response, "locked out", "the model's summary must not reach the user")

	stored := f.stored(t, "s1")
	assert.Equal(t, []domain.Message{
		domain.NewUserMessage("My account was hacked, escalate now"),
		domain.NewEscalationSummary("User reports account compromise"),
	}, stored)
	assert.Equal(t, 2, f.store.appends)

	// the summarizer sees the stored window including the new user turn
	assert.Equal(t, []domain.Message{domain.NewUserMessage("My account was hacked, escalate now")}, f.summarizer.got)
}

func TestChat_EscalationLogsModelSummary(t *testing.T) {
	var buf bytes.Buffer
	observability.Setup(&buf, "info", "json")
	t.Cleanup(func() { observability.Setup(os.Stdout, "info", "json") })

	f := newFixture()
	f.gateway.reply = domain.EscalationReply("Customer is locked out of their account")

	_, err := f.svc.Chat(context.Background(), conversation.ChatInput{SessionID: "s1", Query: "escalate"})
	require.NoError(t, err)

	var found bool
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["msg"] == "escalation requested" {
			found = true
			assert.Equal(t, "Customer is locked out of their account", entry["model_summary"])
			assert.Equal(t, "s1", entry["session_id"])
		}
	}
	assert.True(t, found, "escalation log line missing")
}

func TestChat_DeescalatesAfterSummary(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Chat(ctx, conversation.ChatInput{SessionID: "s1", Query: "hello"})
	require.NoError(t, err)

	f.gateway.reply = domain.EscalationReply("needs a human")
	_, err = f.svc.Chat(ctx, conversation.ChatInput{SessionID: "s1", Query: "talk to agent"})
	require.NoError(t, err)

	f.gateway.reply = domain.TextReply("Sure, what's up?")
	out, err := f.svc.Chat(ctx, conversation.ChatInput{SessionID: "s1", Query: "new question"})
	require.NoError(t, err)
	assert.False(t, out.IsEscalated)

	require.Len(t, f.gateway.histories, 3)
	assert.Empty(t, f.gateway.histories[2], "gateway must see an empty history after an escalation")

	// only the in-memory view is reset, the stored log keeps the summary
	stored := f.stored(t, "s1")
	require.Len(t, stored, 6)
	assert.Equal(t, domain.TypeEscalationSummary, stored[3].Type)
	assert.Equal(t, domain.NewAssistantMessage("Sure, what's up?"), stored[5])
}

func TestChat_SummaryUsesUnfilteredHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.gateway.reply = domain.EscalationReply("first issue")
	_, err := f.svc.Chat(ctx, conversation.ChatInput{SessionID: "s1", Query: "escalate"})
	require.NoError(t, err)

	// escalating again right after an escalation
	_, err = f.svc.Chat(ctx, conversation.ChatInput{SessionID: "s1", Query: "still broken, escalate"})
	require.NoError(t, err)

	assert.Empty(t, f.gateway.histories[1])
	require.Len(t, f.summarizer.got, 3)
	assert.Equal(t, domain.TypeEscalationSummary, f.summarizer.got[1].Type)
}

func TestChat_EmptyQueryHasNoSideEffects(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		t.Run(fmt.Sprintf("%q", q), func(t *testing.T) {
			f := newFixture()

			_, err := f.svc.Chat(context.Background(), conversation.ChatInput{SessionID: "s1", Query: q})
			assert.ErrorIs(t, err, domain.ErrEmptyQuery)
			assert.Zero(t, f.store.appends)
			assert.Zero(t, f.gateway.calls)
		})
	}
}

func TestChat_StorageFailurePropagates(t *testing.T) {
	for _, op := range []string{"read", "append"} {
		t.Run(op, func(t *testing.T) {
			f := newFixture()
			f.store.failOn = op

			_, err := f.svc.Chat(context.Background(), conversation.ChatInput{SessionID: "s1", Query: "hi"})
			assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
			assert.Zero(t, f.gateway.calls)
		})
	}
}

func TestChat_ProviderFailureStillAnswers(t *testing.T) {
	store := memory.NewHistoryStore(domain.DefaultMaxMessages)
	provider := &failingProvider{}
	svc := conversation.NewService(store,
		llm.NewGateway(provider, 0),
		llm.NewSummarizer(provider, 0),
	)

	out, err := svc.Chat(context.Background(), conversation.ChatInput{SessionID: "s1", Query: "hi"})
	require.NoError(t, err)
	assert.False(t, out.IsEscalated)
	assert.Equal(t, llm.ApologyText, out.Response)
}

type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }

func (failingProvider) Generate(context.Context, llm.Request) (*llm.Response, error) {
	return nil, errors.New("503 from provider")
}

func TestChat_WithMockProviderEndToEnd(t *testing.T) {
	store := memory.NewHistoryStore(domain.DefaultMaxMessages)
	p := llm.NewMockProvider()
	svc := conversation.NewService(store, llm.NewGateway(p, 0), llm.NewSummarizer(p, 0))
	ctx := context.Background()

	out, err := svc.Chat(ctx, conversation.ChatInput{SessionID: "s1", Query: "My account was hacked, escalate now"})
	require.NoError(t, err)
	assert.True(t, out.IsEscalated)
	assert.Equal(t, "User asked: My account was hacked, escalate now", out.EscalationSummary)

	hist, err := svc.History(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, hist.IsEscalated)
}

func TestResetSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Chat(ctx, conversation.ChatInput{SessionID: "s1", Query: "hi"})
	require.NoError(t, err)

	require.NoError(t, f.svc.ResetSession(ctx, "s1"))

	hist, err := f.svc.History(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, hist.Messages)
	assert.False(t, hist.IsEscalated)
}
