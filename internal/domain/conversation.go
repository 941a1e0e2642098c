package domain

// Message is one entry of a session's conversation log.
type Message struct {
	Role    Role        `json:"role"`
	Content string      `json:"content"`
	Type    MessageType `json:"type"`
}

// NewUserMessage returns a normal message authored by the user.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Type: TypeNormal}
}

// NewAssistantMessage returns a normal message authored by the bot.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Type: TypeNormal}
}

// NewEscalationSummary returns the flagged message persisted when a
// conversation is handed off to a human agent.
func NewEscalationSummary(summary string) Message {
	return Message{Role: RoleAssistant, Content: "SUMMARY: " + summary, Type: TypeEscalationSummary}
}

// IsEscalationSummary reports whether m marks a hand-off.
func (m Message) IsEscalationSummary() bool {
	return m.Role == RoleAssistant && m.Type == TypeEscalationSummary
}

// IsEscalated reports whether a chronologically ordered history ends with
// an escalation summary.
func IsEscalated(history []Message) bool {
	if len(history) == 0 {
		return false
	}
	return history[len(history)-1].IsEscalationSummary()
}

// Chronological returns a copy of a newest-first log in oldest-first order.
func Chronological(newestFirst []Message) []Message {
	out := make([]Message, len(newestFirst))
	for i, m := range newestFirst {
		out[len(newestFirst)-1-i] = m
	}
	return out
}

// Reply is what the LLM gateway decided for a turn: either a plain text
// answer or a request to escalate to a human.
type Reply struct {
	Text     string
	Escalate bool
	Summary  string
}

func TextReply(text string) Reply {
	return Reply{Text: text}
}

func EscalationReply(summary string) Reply {
	return Reply{Escalate: true, Summary: summary}
}
