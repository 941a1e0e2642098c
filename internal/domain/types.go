package domain

type SessionID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type MessageType string

const (
	TypeNormal            MessageType = "normal"
	TypeEscalationSummary MessageType = "escalation_summary"
)

// DefaultMaxMessages is the number of messages a session retains.
const DefaultMaxMessages = 6
