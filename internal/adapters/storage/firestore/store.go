package firestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/unthinkable/alina-support/internal/domain"
)

// Store keeps one document per session in the "sessions" collection. The
// document holds the message window newest first, so an append is a single
// transactional read-modify-write.
type Store struct {
	client *firestore.Client
	max    int
	now    func() time.Time
}

// NewStore creates a Firestore store for projectID.
func NewStore(ctx context.Context, projectID string, maxMessages int) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return newStore(client, maxMessages), nil
}

func newStore(client *firestore.Client, maxMessages int) *Store {
	if maxMessages <= 0 {
		maxMessages = domain.DefaultMaxMessages
	}
	return &Store{client: client, max: maxMessages, now: time.Now}
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type messageDoc struct {
	Role    string `firestore:"role"`
	Content string `firestore:"content"`
	Type    string `firestore:"type"`
}

type sessionDoc struct {
	Messages  []messageDoc `firestore:"messages"` // newest first
	UpdatedAt time.Time    `firestore:"updated_at"`
}

// sessionDoc fails for ids Firestore cannot use as a document id: ids
// containing a slash, "." and "..", and the reserved __name__ form.
func (s *Store) sessionDoc(id domain.SessionID) (*firestore.DocumentRef, error) {
	raw := string(id)
	if raw == "" || raw == "." || raw == ".." || strings.Contains(raw, "/") ||
		(len(raw) > 4 && strings.HasPrefix(raw, "__") && strings.HasSuffix(raw, "__")) {
		return nil, fmt.Errorf("%w %q: not a firestore document id", domain.ErrInvalidSessionID, id)
	}

	ref := s.client.Collection("sessions").Doc(raw)
	if ref == nil {
		return nil, fmt.Errorf("%w %q: not a firestore document id", domain.ErrInvalidSessionID, id)
	}
	return ref, nil
}

// ─────────────────────────────────────────
// HistoryStore implementation
// ─────────────────────────────────────────

func (s *Store) Append(ctx context.Context, id domain.SessionID, msg domain.Message) error {
	ref, err := s.sessionDoc(id)
	if err != nil {
		return err
	}

	err = s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var doc sessionDoc
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("decode sessionDoc: %w", err)
			}
		}

		doc.Messages = prependWindow(doc.Messages, toDoc(msg), s.max)
		doc.UpdatedAt = s.now()
		return tx.Set(ref, doc)
	})
	return domain.StorageFailure("firestore append", err)
}

func (s *Store) Read(ctx context.Context, id domain.SessionID) ([]domain.Message, error) {
	ref, err := s.sessionDoc(id)
	if err != nil {
		return nil, err
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return []domain.Message{}, nil
		}
		return nil, domain.StorageFailure("firestore read", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode sessionDoc: %w", err)
	}

	newestFirst := make([]domain.Message, 0, len(doc.Messages))
	for i, m := range doc.Messages {
		if i == s.max {
			break
		}
		newestFirst = append(newestFirst, fromDoc(m))
	}
	return domain.Chronological(newestFirst), nil
}

func (s *Store) Clear(ctx context.Context, id domain.SessionID) error {
	ref, err := s.sessionDoc(id)
	if err != nil {
		return err
	}

	_, err = ref.Delete(ctx)
	return domain.StorageFailure("firestore clear", err)
}

// prependWindow puts head in front of a newest-first window and drops
// whatever falls beyond max.
func prependWindow(window []messageDoc, head messageDoc, max int) []messageDoc {
	out := make([]messageDoc, 0, min(len(window)+1, max))
	out = append(out, head)
	for _, m := range window {
		if len(out) == max {
			break
		}
		out = append(out, m)
	}
	return out
}

func toDoc(m domain.Message) messageDoc {
	return messageDoc{Role: string(m.Role), Content: m.Content, Type: string(m.Type)}
}

func fromDoc(d messageDoc) domain.Message {
	return domain.Message{
		Role:    domain.Role(d.Role),
		Content: d.Content,
		Type:    domain.MessageType(d.Type),
	}
}
