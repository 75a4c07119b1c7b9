package storage

import (
	"context"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fermata-io/fermata/internal/domain"
)

func newTestBadgerStore(t *testing.T, ttl time.Duration) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(t.TempDir(), ttl, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func suspendedExecution(id string) *domain.Execution {
	exec := domain.NewExecution(id, "order-approval")
	exec.Status = domain.ExecutionStatusSuspended
	exec.State = json.RawMessage(`{"items": 10}`)
	exec.Done["validate"] = true
	exec.SuspendedStep = "approve"
	exec.Suspension = &domain.SuspensionRequest{
		Token:       "token-1",
		Hint:        "Large order: 10 items. Approve?",
		RequestedAt: time.Now(),
	}
	return exec
}

func TestBadgerStoreCheckpointRoundTrip(t *testing.T) {
	store := newTestBadgerStore(t, 0)
	ctx := context.Background()

	exec := suspendedExecution("exec-1")
	require.NoError(t, store.SaveCheckpoint(ctx, exec.ID, domain.NewCheckpoint(exec)))

	cp, err := store.LoadCheckpoint(ctx, "exec-1")
	require.NoError(t, err)

	assert.Equal(t, "exec-1", cp.ExecutionID)
	assert.Equal(t, "order-approval", cp.Execution.GraphName)
	assert.Equal(t, "approve", cp.Execution.SuspendedStep)
	assert.Equal(t, "Large order: 10 items. Approve?", cp.Execution.Suspension.Hint)
	assert.True(t, cp.Execution.Done["validate"])
	assert.JSONEq(t, `{"items": 10}`, string(cp.Execution.State))
}

func TestBadgerStoreCheckpointNotFound(t *testing.T) {
	store := newTestBadgerStore(t, 0)

	_, err := store.LoadCheckpoint(context.Background(), "ghost")
	assert.True(t, domain.IsNotFound(err))
}

func TestBadgerStoreDeleteConsumesCheckpoint(t *testing.T) {
	store := newTestBadgerStore(t, 0)
	ctx := context.Background()

	exec := suspendedExecution("exec-1")
	require.NoError(t, store.SaveCheckpoint(ctx, exec.ID, domain.NewCheckpoint(exec)))
	require.NoError(t, store.DeleteCheckpoint(ctx, "exec-1"))

	_, err := store.LoadCheckpoint(ctx, "exec-1")
	assert.True(t, domain.IsNotFound(err))

	// Deleting again is a no-op, not an error.
	assert.NoError(t, store.DeleteCheckpoint(ctx, "exec-1"))
}

func TestBadgerStoreCheckpointOverwrite(t *testing.T) {
	store := newTestBadgerStore(t, 0)
	ctx := context.Background()

	first := suspendedExecution("exec-1")
	require.NoError(t, store.SaveCheckpoint(ctx, first.ID, domain.NewCheckpoint(first)))

	second := suspendedExecution("exec-1")
	second.SuspendedStep = "confirm-shipping"
	require.NoError(t, store.SaveCheckpoint(ctx, second.ID, domain.NewCheckpoint(second)))

	cp, err := store.LoadCheckpoint(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, "confirm-shipping", cp.Execution.SuspendedStep)
}

func TestBadgerStoreCheckpointTTLExpiry(t *testing.T) {
	// Badger tracks expiry at second granularity.
	store := newTestBadgerStore(t, 1*time.Second)
	ctx := context.Background()

	exec := suspendedExecution("exec-1")
	require.NoError(t, store.SaveCheckpoint(ctx, exec.ID, domain.NewCheckpoint(exec)))

	_, err := store.LoadCheckpoint(ctx, "exec-1")
	require.NoError(t, err)

	time.Sleep(2100 * time.Millisecond)

	_, err = store.LoadCheckpoint(ctx, "exec-1")
	assert.True(t, domain.IsNotFound(err), "expired checkpoint must behave like a missing one, got %v", err)
}

func TestBadgerStoreExecutionRoundTrip(t *testing.T) {
	store := newTestBadgerStore(t, 0)
	ctx := context.Background()

	exec := suspendedExecution("exec-1")
	require.NoError(t, store.SaveExecution(ctx, exec))

	loaded, err := store.LoadExecution(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusSuspended, loaded.Status)

	_, err = store.LoadExecution(ctx, "ghost")
	assert.True(t, domain.IsNotFound(err))
}

func TestBadgerStoreDoubleClose(t *testing.T) {
	store, err := NewBadgerStore(t.TempDir(), 0, nil)
	require.NoError(t, err)

	require.NoError(t, store.Close())
	assert.ErrorIs(t, store.Close(), domain.ErrAlreadyClosed)
}
