package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unthinkable/alina-support/internal/config"
	"github.com/unthinkable/alina-support/internal/domain"
)

func TestNewStoreBackends(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		cfg  config.StoreConfig
	}{
		{"memory", config.StoreConfig{Backend: "memory", MaxMessages: 6}},
		{"redis", config.StoreConfig{Backend: "redis", RedisURL: "redis://" + mr.Addr(), MaxMessages: 6}},
		{"sqlite", config.StoreConfig{Backend: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "a.db"), MaxMessages: 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closer, err := newStore(ctx, tt.cfg)
			require.NoError(t, err)
			t.Cleanup(func() { closer.Close() })

			require.NoError(t, store.Append(ctx, "s1", domain.NewUserMessage("hi")))
			msgs, err := store.Read(ctx, "s1")
			require.NoError(t, err)
			assert.Len(t, msgs, 1)
		})
	}
}

func TestNewStoreRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, _, err := newStore(context.Background(), config.StoreConfig{Backend: "redis", RedisURL: "redis://" + addr})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestNewProviderDefaultsToMock(t *testing.T) {
	p, err := newProvider(context.Background(), config.LLMConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Name())

	p, err = newProvider(context.Background(), config.LLMConfig{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}
