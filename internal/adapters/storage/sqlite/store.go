package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/unthinkable/alina-support/internal/domain"
	"github.com/unthinkable/alina-support/internal/observability"
)

// Store keeps the message window in a local SQLite database. Rows beyond
// the window are pruned in the same transaction that inserts a message.
type Store struct {
	db  *sql.DB
	max int
}

// Open creates (if needed) and opens the database at path.
func Open(path string, maxMessages int) (*Store, error) {
	if maxMessages <= 0 {
		maxMessages = domain.DefaultMaxMessages
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS session_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'normal'
		);

		CREATE INDEX IF NOT EXISTS idx_session_messages_session
			ON session_messages(session_id, id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	observability.WithFields("component", "sqlite").Info("history store initialized", "path", path)
	return &Store{db: db, max: maxMessages}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Append(ctx context.Context, id domain.SessionID, msg domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StorageFailure("begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO session_messages (session_id, role, content, type) VALUES (?, ?, ?, ?)`,
		string(id), string(msg.Role), msg.Content, string(msg.Type),
	); err != nil {
		return domain.StorageFailure("insert", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM session_messages
		WHERE session_id = ?
		  AND id NOT IN (
			SELECT id FROM session_messages
			WHERE session_id = ?
			ORDER BY id DESC
			LIMIT ?
		  )`,
		string(id), string(id), s.max,
	); err != nil {
		return domain.StorageFailure("trim", err)
	}

	return domain.StorageFailure("commit", tx.Commit())
}

func (s *Store) Read(ctx context.Context, id domain.SessionID) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, type FROM session_messages
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?`,
		string(id), s.max,
	)
	if err != nil {
		return nil, domain.StorageFailure("read", err)
	}
	defer rows.Close()

	var newestFirst []domain.Message
	for rows.Next() {
		var role, content, typ string
		if err := rows.Scan(&role, &content, &typ); err != nil {
			return nil, domain.StorageFailure("scan", err)
		}
		newestFirst = append(newestFirst, domain.Message{
			Role:    domain.Role(role),
			Content: content,
			Type:    domain.MessageType(typ),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageFailure("read", err)
	}

	return domain.Chronological(newestFirst), nil
}

func (s *Store) Clear(ctx context.Context, id domain.SessionID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_messages WHERE session_id = ?`, string(id))
	return domain.StorageFailure("clear", err)
}
