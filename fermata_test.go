package fermata_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fermata-io/fermata"
)

func newTestManager(t *testing.T) *fermata.Manager {
	t.Helper()
	m, err := fermata.NewWithConfig(&fermata.Config{
		InMemory: true,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestConfirmStepSuspendAndResume(t *testing.T) {
	m := newTestManager(t)

	graph := fermata.NewGraph("deploy").
		AddStep("confirm", fermata.ConfirmStep("confirmed", "Deploy to production?", map[string]string{"env": "prod"}))
	require.NoError(t, m.RegisterGraph(graph))
	ctx := context.Background()

	started, err := m.Start(ctx, "deploy", json.RawMessage(`{}`))
	require.NoError(t, err)
	require.True(t, started.Pending())
	assert.Equal(t, "Deploy to production?", started.Hint)

	resumed, err := m.Resume(ctx, started.ExecutionID, &fermata.Decision{Confirmed: false})
	require.NoError(t, err)

	assert.Equal(t, fermata.ExecutionStatusCompleted, resumed.Status)
	assert.JSONEq(t, `{"confirmed":false}`, string(resumed.State))
}

func TestOracleStepAnswersThroughTools(t *testing.T) {
	m := newTestManager(t)

	var invocations []string
	require.NoError(t, m.RegisterTool("inventory", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		invocations = append(invocations, string(args))
		return json.RawMessage(`{"stock": 3}`), nil
	}))

	m.SetOracle(fermata.NewScriptedOracle(
		fermata.OracleToolTurn("inventory", map[string]string{"sku": "widget"}),
		fermata.OracleAnswerTurn("reorder widgets"),
	))

	graph := fermata.NewGraph("restock").
		AddStep("decide", fermata.OracleStep("plan", "Decide whether to reorder.", 5))
	require.NoError(t, m.RegisterGraph(graph))

	result, err := m.Start(context.Background(), "restock", json.RawMessage(`{}`))
	require.NoError(t, err)

	assert.Equal(t, fermata.ExecutionStatusCompleted, result.Status)
	assert.JSONEq(t, `{"plan":"reorder widgets"}`, string(result.State))
	require.Len(t, invocations, 1)
	assert.JSONEq(t, `{"sku":"widget"}`, invocations[0])
}

func TestOracleStepRecoversFromToolFailure(t *testing.T) {
	m := newTestManager(t)

	calls := 0
	require.NoError(t, m.RegisterTool("flaky", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("temporarily unavailable")
		}
		return json.RawMessage(`{"ok": true}`), nil
	}))

	m.SetOracle(fermata.NewScriptedOracle(
		fermata.OracleToolTurn("flaky", nil),
		fermata.OracleToolTurn("flaky", nil),
		fermata.OracleAnswerTurn("done"),
	))

	graph := fermata.NewGraph("resilient").
		AddStep("decide", fermata.OracleStep("outcome", "Keep trying.", 5))
	require.NoError(t, m.RegisterGraph(graph))

	result, err := m.Start(context.Background(), "resilient", json.RawMessage(`{}`))
	require.NoError(t, err)

	assert.Equal(t, fermata.ExecutionStatusCompleted, result.Status,
		"a failed tool call is reported back to the oracle, not fatal to the step")
	assert.Equal(t, 2, calls)
}

func TestOracleStepTurnBudgetExhaustion(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.RegisterTool("noop", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	}))

	m.SetOracle(fermata.NewScriptedOracle(
		fermata.OracleToolTurn("noop", nil),
		fermata.OracleToolTurn("noop", nil),
		fermata.OracleToolTurn("noop", nil),
	))

	graph := fermata.NewGraph("stuck").
		AddStep("decide", fermata.OracleStep("outcome", "Answer eventually.", 2))
	require.NoError(t, m.RegisterGraph(graph))

	result, err := m.Start(context.Background(), "stuck", json.RawMessage(`{}`))
	require.NoError(t, err)

	assert.Equal(t, fermata.ExecutionStatusFailed, result.Status)
	assert.Contains(t, result.Error, "no answer within 2 turns")
}

func TestOracleStepWithoutOracle(t *testing.T) {
	m := newTestManager(t)

	graph := fermata.NewGraph("orphan").
		AddStep("decide", fermata.OracleStep("outcome", "Decide.", 3))
	require.NoError(t, m.RegisterGraph(graph))

	result, err := m.Start(context.Background(), "orphan", json.RawMessage(`{}`))
	require.NoError(t, err)

	assert.Equal(t, fermata.ExecutionStatusFailed, result.Status)
	assert.Contains(t, result.Error, "no oracle configured")
}
