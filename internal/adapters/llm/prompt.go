package llm

import (
	"strings"

	"github.com/unthinkable/alina-support/internal/domain"
)

const personaPrompt = `
You are 'Alina', a friendly and professional customer support agent for a leading tech company called 'Unthinkable'.
Your primary function is to answer common customer FAQs concisely and accurately.

**CRITICAL RULE:** If the user's query is complex, involves account-specific data, or uses strong keywords for human help (like 'escalate', 'speak to manager', 'account access', 'talk to agent', 'urgent'), you MUST invoke the 'escalate_to_human' tool immediately.
`

const greeting = "Hello! I am Alina. How can I assist you today?"

const summaryInstruction = "You are a neutral assistant. Summarize the user's core, unfulfilled request in the conversation below into a single, concise sentence for a human agent. Do not critique the bot's actions or use bullet points.\n\n"

// BuildConversation returns the turns sent to the model: persona, canned
// greeting, the history and finally the new query. Any role other than
// assistant is sent as a user turn.
func BuildConversation(history []domain.Message, query string) []Turn {
	turns := make([]Turn, 0, len(history)+3)
	turns = append(turns,
		Turn{Role: TurnUser, Text: personaPrompt},
		Turn{Role: TurnModel, Text: greeting},
	)

	for _, m := range history {
		role := TurnUser
		if m.Role == domain.RoleAssistant {
			role = TurnModel
		}
		turns = append(turns, Turn{Role: role, Text: m.Content})
	}

	return append(turns, Turn{Role: TurnUser, Text: query})
}

// BuildSummaryPrompt renders the history as a transcript behind the
// summarizer instruction.
func BuildSummaryPrompt(history []domain.Message) string {
	var b strings.Builder
	b.WriteString(summaryInstruction)
	for _, m := range history {
		b.WriteString("[")
		b.WriteString(strings.ToUpper(string(m.Role)))
		b.WriteString("]: ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
