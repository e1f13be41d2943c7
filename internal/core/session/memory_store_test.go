package session

import (
	"context"
	"testing"
	"time"

	"dish-suggester/internal/infrastructure/config"
	"dish-suggester/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestMemoryStore(t *testing.T, ttl time.Duration, max int) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(config.SessionConfig{TTL: ttl, MaxSessions: max})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMemoryStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t, time.Hour, 10)

	snap := NewTracker("s1").Snapshot()
	require.NoError(t, s.Save(ctx, snap))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, StateIdle, got.State)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t, time.Hour, 10)

	snap := NewTracker("s1").Snapshot()
	snap.ExcludedDishNames = []string{"Poha"}
	require.NoError(t, s.Save(ctx, snap))

	snap.ExcludedDishNames[0] = "changed"
	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	got.ExcludedDishNames[0] = "changed again"

	again, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Poha"}, again.ExcludedDishNames)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t, 20*time.Millisecond, 10)

	require.NoError(t, s.Save(ctx, NewTracker("s1").Snapshot()))
	time.Sleep(40 * time.Millisecond)

	_, err := s.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreEvictsLeastUsed(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t, time.Hour, 2)

	require.NoError(t, s.Save(ctx, NewTracker("a").Snapshot()))
	require.NoError(t, s.Save(ctx, NewTracker("b").Snapshot()))

	_, err := s.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, NewTracker("c").Snapshot()))

	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.Get(ctx, "a")
	assert.NoError(t, err)
	_, err = s.Get(ctx, "c")
	assert.NoError(t, err)

	stats := s.Stats()
	assert.Equal(t, 2, stats["size"])
	assert.EqualValues(t, 1, stats["evictions"])
}

func TestMemoryStoreUpdateDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t, time.Hour, 1)

	snap := NewTracker("a").Snapshot()
	require.NoError(t, s.Save(ctx, snap))
	snap.State = StateFailed
	require.NoError(t, s.Save(ctx, snap))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, got.State)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t, time.Hour, 10)

	require.NoError(t, s.Save(ctx, NewTracker("s1").Snapshot()))
	require.NoError(t, s.Delete(ctx, "s1"))
	require.NoError(t, s.Delete(ctx, "s1"))

	_, err := s.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestNewStoreSelectsBackend(t *testing.T) {
	cfg := &config.Config{Session: config.SessionConfig{Store: config.SessionStoreMemory, TTL: time.Hour}}
	store, err := NewStore(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &MemoryStore{}, store)

	cfg.Session.Store = "sqlite"
	_, err = NewStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestMemoryStoreLogFieldKeys(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := common.Logger
	common.Logger = zap.New(core)
	t.Cleanup(func() { common.Logger = prev })

	ctx := context.Background()
	s := NewMemoryStore(config.SessionConfig{TTL: time.Hour, MaxSessions: 1, CleanupInterval: time.Hour})
	require.NoError(t, s.Save(ctx, NewTracker("s1").Snapshot()))
	require.NoError(t, s.Save(ctx, NewTracker("s2").Snapshot()))
	require.NoError(t, s.Close())

	keys := map[string]bool{}
	for _, entry := range logs.All() {
		for _, field := range entry.Context {
			keys[field.Key] = true
		}
	}
	for _, key := range []string{"max_sessions", "ttl", "cleanup_interval", "evicted", "hits", "misses", "evictions"} {
		assert.True(t, keys[key], key)
	}
}
