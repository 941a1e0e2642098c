package domain

import "context"

// HistoryStore persists the bounded per-session message window.
type HistoryStore interface {
	// Append pushes msg to the head of the session log and trims it to
	// the store's window in a single store-side operation.
	Append(ctx context.Context, id SessionID, msg Message) error
	// Read returns the retained messages oldest-first. Unknown sessions
	// yield an empty slice.
	Read(ctx context.Context, id SessionID) ([]Message, error)
	Clear(ctx context.Context, id SessionID) error
}

// Gateway turns a history and a new query into a reply. It never fails:
// provider errors degrade to a fixed apology.
type Gateway interface {
	Converse(ctx context.Context, history []Message, query string) Reply
}

// Summarizer condenses a history into one sentence for a human agent.
type Summarizer interface {
	Summarize(ctx context.Context, history []Message) string
}
