package kafka

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// ---------------------------------------------------------------------------
// MemoryIdempotencyStore
// ---------------------------------------------------------------------------

func TestMemoryIdempotencyStore_AddAndContains(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	ctx := context.Background()

	ok, err := store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Add(ctx, "evt-1"))
	ok, err = store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "evt-old"))
	now = now.Add(2 * time.Minute)

	ok, err := store.Contains(ctx, "evt-old")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryIdempotencyStore_AddSweepsExpired(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "a"))
	require.NoError(t, store.Add(ctx, "b"))
	now = now.Add(2 * time.Minute)
	require.NoError(t, store.Add(ctx, "c"))

	assert.Equal(t, 1, store.Len())
}

func TestMemoryIdempotencyStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Add(ctx, "evt-shared")
			_, _ = store.Contains(ctx, "evt-shared")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.Len())
}

// ---------------------------------------------------------------------------
// IdempotentHandler
// ---------------------------------------------------------------------------

type failingStore struct{}

func (failingStore) Contains(context.Context, string) (bool, error) {
	return false, errors.New("store down")
}
func (failingStore) Add(context.Context, string) error { return errors.New("store down") }

func countingHandler(calls *int, err error) Handler {
	return func(context.Context, *Event) error {
		*calls++
		return err
	}
}

func TestIdempotentHandler_SkipsDuplicates(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	calls := 0
	h := IdempotentHandler(store, countingHandler(&calls, nil), testLogger())

	event := &Event{EventID: "evt-1", EventType: "payment.succeeded"}
	require.NoError(t, h(context.Background(), event))
	require.NoError(t, h(context.Background(), event))
	require.NoError(t, h(context.Background(), &Event{EventID: "evt-2"}))

	assert.Equal(t, 2, calls)
}

func TestIdempotentHandler_EmptyEventIDPassesThrough(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	calls := 0
	h := IdempotentHandler(store, countingHandler(&calls, nil), testLogger())

	require.NoError(t, h(context.Background(), &Event{}))
	require.NoError(t, h(context.Background(), &Event{}))

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, store.Len())
}

func TestIdempotentHandler_FailureNotRecorded(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	calls := 0
	h := IdempotentHandler(store, countingHandler(&calls, errors.New("boom")), testLogger())

	event := &Event{EventID: "evt-1"}
	assert.Error(t, h(context.Background(), event))
	assert.Error(t, h(context.Background(), event))

	assert.Equal(t, 2, calls)
}

func TestIdempotentHandler_StoreErrorProcessesAnyway(t *testing.T) {
	calls := 0
	h := IdempotentHandler(failingStore{}, countingHandler(&calls, nil), testLogger())

	require.NoError(t, h(context.Background(), &Event{EventID: "evt-1"}))
	assert.Equal(t, 1, calls)
}
