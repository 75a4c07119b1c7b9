package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fermata-io/fermata/internal/domain"
)

func newTestFileGateway(t *testing.T) (*FileGateway, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	gw, err := NewFileGateway(fs, "approvals", nil)
	require.NoError(t, err)
	return gw, fs
}

func testRequest(hint string) *domain.SuspensionRequest {
	return &domain.SuspensionRequest{
		Token:       "token-1",
		Hint:        hint,
		RequestedAt: time.Now(),
	}
}

func TestFileGatewayPublishAndPending(t *testing.T) {
	gw, _ := newTestFileGateway(t)
	ctx := context.Background()

	require.NoError(t, gw.Publish(ctx, "exec-1", testRequest("Approve order?")))
	require.NoError(t, gw.Publish(ctx, "exec-2", testRequest("Delete records?")))

	pending, err := gw.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	assert.Equal(t, "exec-1", pending[0].ExecutionID)
	assert.Equal(t, "Approve order?", pending[0].Request.Hint)
	assert.Equal(t, "exec-2", pending[1].ExecutionID)
}

func TestFileGatewayWithdraw(t *testing.T) {
	gw, _ := newTestFileGateway(t)
	ctx := context.Background()

	require.NoError(t, gw.Publish(ctx, "exec-1", testRequest("Approve?")))
	require.NoError(t, gw.Withdraw(ctx, "exec-1"))

	pending, err := gw.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Withdrawing an unknown ID is a no-op.
	assert.NoError(t, gw.Withdraw(ctx, "ghost"))
}

func TestFileGatewayDecisionRoundTrip(t *testing.T) {
	gw, fs := newTestFileGateway(t)
	ctx := context.Background()

	require.NoError(t, gw.Publish(ctx, "exec-1", testRequest("Approve?")))

	// The CLI writes into the same directory out-of-band.
	require.NoError(t, WriteDecision(fs, "approvals", "exec-1", true, map[string]interface{}{"note": "looks fine"}))

	arrived, err := gw.PollDecisions(ctx)
	require.NoError(t, err)
	require.Len(t, arrived, 1)

	assert.Equal(t, "exec-1", arrived[0].ExecutionID)
	assert.True(t, arrived[0].Decision.Confirmed)
	assert.Equal(t, "looks fine", arrived[0].Decision.Metadata["note"])
	assert.False(t, arrived[0].Decision.DecidedAt.IsZero())

	// The decision and its pending counterpart are consumed.
	pending, err := gw.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	arrived, err = gw.PollDecisions(ctx)
	require.NoError(t, err)
	assert.Empty(t, arrived)
}

func TestFileGatewayPollSkipsMalformedFiles(t *testing.T) {
	gw, fs := newTestFileGateway(t)
	ctx := context.Background()

	require.NoError(t, afero.WriteFile(fs, "approvals/decisions/garbage.json", []byte("not json"), 0o644))
	require.NoError(t, WriteDecision(fs, "approvals", "exec-1", false, nil))

	arrived, err := gw.PollDecisions(ctx)
	require.NoError(t, err)
	require.Len(t, arrived, 1)
	assert.Equal(t, "exec-1", arrived[0].ExecutionID)
	assert.False(t, arrived[0].Decision.Confirmed)
}

func TestMemoryGatewayRoundTrip(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := context.Background()

	require.NoError(t, gw.Publish(ctx, "exec-1", testRequest("Approve?")))

	pending, err := gw.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	gw.SubmitDecision("exec-1", &domain.Decision{Confirmed: true, DecidedAt: time.Now()})

	arrived, err := gw.PollDecisions(ctx)
	require.NoError(t, err)
	require.Len(t, arrived, 1)
	assert.True(t, arrived[0].Decision.Confirmed)

	pending, err = gw.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
