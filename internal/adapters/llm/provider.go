package llm

import "context"

// TurnRole is the vendor-neutral speaker of a turn sent to a provider.
type TurnRole string

const (
	TurnUser  TurnRole = "user"
	TurnModel TurnRole = "model"
)

type Turn struct {
	Role TurnRole
	Text string
}

// Request is one completion call. When AllowEscalation is set the provider
// exposes the escalate_to_human tool and nothing else.
type Request struct {
	Turns           []Turn
	Temperature     float32
	AllowEscalation bool
}

// Response carries either free text or an escalation tool call.
type Response struct {
	Text       string
	Escalation *EscalationCall
}

type EscalationCall struct {
	Summary string
}

// Provider is a concrete LLM vendor.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
}

const (
	escalationToolName        = "escalate_to_human"
	escalationToolDescription = "Triggers a handoff to a human representative for complex, urgent, or account-specific issues."
	escalationSummaryArg      = "summary"
	escalationSummaryDesc     = "A brief, one-sentence summary of the user's core problem for the human agent."

	// used when the model calls the tool without a summary
	defaultEscalationSummary = "Issue requires immediate human attention."
)
