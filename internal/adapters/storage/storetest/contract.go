// Package storetest holds the behaviour every domain.HistoryStore backend
// must share. Backend tests call Run with a factory for a fresh store.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unthinkable/alina-support/internal/domain"
)

// Factory returns an empty store retaining at most maxMessages per session.
type Factory func(t *testing.T, maxMessages int) domain.HistoryStore

func Run(t *testing.T, newStore Factory) {
	t.Run("UnknownSessionReadsEmpty", func(t *testing.T) {
		s := newStore(t, domain.DefaultMaxMessages)

		msgs, err := s.Read(context.Background(), "nope")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("AppendThenReadReturnsLast", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, domain.DefaultMaxMessages)

		require.NoError(t, s.Append(ctx, "s1", domain.NewUserMessage("hi")))
		summary := domain.NewEscalationSummary("needs a human")
		require.NoError(t, s.Append(ctx, "s1", summary))

		msgs, err := s.Read(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, summary, msgs[len(msgs)-1])
		assert.Equal(t, domain.NewUserMessage("hi"), msgs[0])
	})

	t.Run("WindowKeepsMostRecentChronologically", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, 6)

		for i := 1; i <= 7; i++ {
			require.NoError(t, s.Append(ctx, "s1", domain.NewUserMessage(fmt.Sprintf("m%d", i))))
		}

		msgs, err := s.Read(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, msgs, 6)
		for i, m := range msgs {
			assert.Equal(t, fmt.Sprintf("m%d", i+2), m.Content)
		}
	})

	t.Run("SessionsAreIsolated", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, domain.DefaultMaxMessages)

		require.NoError(t, s.Append(ctx, "a", domain.NewUserMessage("for a")))
		require.NoError(t, s.Append(ctx, "b", domain.NewUserMessage("for b")))

		msgs, err := s.Read(ctx, "a")
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "for a", msgs[0].Content)
	})

	t.Run("ClearRemovesLog", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, domain.DefaultMaxMessages)

		require.NoError(t, s.Append(ctx, "s1", domain.NewUserMessage("hi")))
		require.NoError(t, s.Clear(ctx, "s1"))
		require.NoError(t, s.Clear(ctx, "never-existed"))

		msgs, err := s.Read(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("ConcurrentAppendsKeepWindow", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, 6)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, s.Append(ctx, "busy", domain.NewUserMessage(fmt.Sprintf("m%d", i))))
			}(i)
		}
		wg.Wait()

		msgs, err := s.Read(ctx, "busy")
		require.NoError(t, err)
		assert.Len(t, msgs, 6)
	})
}
