package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unthinkable/alina-support/internal/domain"
)

// Store keeps each session as one Redis list, newest message at the head,
// capped at max entries.
type Store struct {
	client goredis.UniversalClient
	max    int
	prefix string
}

// Dial connects to the Redis server at url and checks it answers.
func Dial(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, domain.StorageFailure("ping", err)
	}
	return client, nil
}

// NewStore wraps client. Keys are the session ids prefixed with prefix.
func NewStore(client goredis.UniversalClient, maxMessages int, prefix string) *Store {
	if maxMessages <= 0 {
		maxMessages = domain.DefaultMaxMessages
	}
	return &Store{client: client, max: maxMessages, prefix: prefix}
}

func (s *Store) key(id domain.SessionID) string {
	return s.prefix + string(id)
}

// Append runs LPUSH and LTRIM inside one MULTI/EXEC so concurrent writers
// cannot leave the list above the window.
func (s *Store) Append(ctx context.Context, id domain.SessionID, msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	key := s.key(id)
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, int64(s.max-1))
		return nil
	})
	return domain.StorageFailure("append", err)
}

func (s *Store) Read(ctx context.Context, id domain.SessionID) ([]domain.Message, error) {
	raw, err := s.client.LRange(ctx, s.key(id), 0, int64(s.max-1)).Result()
	if err != nil {
		return nil, domain.StorageFailure("read", err)
	}

	newestFirst := make([]domain.Message, 0, len(raw))
	for _, entry := range raw {
		var m domain.Message
		if err := json.Unmarshal([]byte(entry), &m); err != nil {
			return nil, fmt.Errorf("decoding message in %s: %w", s.key(id), err)
		}
		newestFirst = append(newestFirst, m)
	}
	return domain.Chronological(newestFirst), nil
}

func (s *Store) Clear(ctx context.Context, id domain.SessionID) error {
	return domain.StorageFailure("clear", s.client.Del(ctx, s.key(id)).Err())
}
