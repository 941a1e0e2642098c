package llm

import (
	"context"
	"fmt"
	"strings"
)

// handoffKeywords mirrors the persona's escalation rule.
var handoffKeywords = []string{
	"escalate", "speak to manager", "account access", "talk to agent",
	"urgent", "human", "hacked",
}

// MockProvider answers deterministically without calling any vendor.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	if len(req.Turns) == 0 {
		return nil, fmt.Errorf("mock: no turns")
	}
	last := req.Turns[len(req.Turns)-1].Text

	if !req.AllowEscalation {
		return &Response{Text: "User asked: " + lastUserLine(last)}, nil
	}

	lower := strings.ToLower(last)
	for _, kw := range handoffKeywords {
		if strings.Contains(lower, kw) {
			return &Response{Escalation: &EscalationCall{
				Summary: "User requests human assistance: " + last,
			}}, nil
		}
	}

	return &Response{Text: fmt.Sprintf("Thanks for reaching out! You said %q. Could you tell me a bit more?", last)}, nil
}

// lastUserLine extracts the most recent user line of a summary transcript.
func lastUserLine(prompt string) string {
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if after, ok := strings.CutPrefix(lines[i], "[USER]: "); ok {
			return after
		}
	}
	return "nothing in particular"
}
