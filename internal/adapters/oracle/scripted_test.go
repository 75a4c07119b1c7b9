package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedReplaysTurnsInOrder(t *testing.T) {
	o := NewScripted(
		ToolTurn("lookup", map[string]string{"key": "inventory"}),
		AnswerTurn("restock"),
	)
	ctx := context.Background()

	first, err := o.Decide(ctx, nil, "check stock")
	require.NoError(t, err)
	require.NotNil(t, first.ToolCall)
	assert.Equal(t, "lookup", first.ToolCall.Name)
	assert.JSONEq(t, `{"key":"inventory"}`, string(first.ToolCall.Args))

	second, err := o.Decide(ctx, nil, "check stock")
	require.NoError(t, err)
	assert.Nil(t, second.ToolCall)
	assert.JSONEq(t, `"restock"`, string(second.Answer))
}

func TestScriptedExhaustion(t *testing.T) {
	o := NewScripted(AnswerTurn("done"))
	ctx := context.Background()

	_, err := o.Decide(ctx, nil, "")
	require.NoError(t, err)

	_, err = o.Decide(ctx, nil, "")
	assert.Error(t, err)
}
