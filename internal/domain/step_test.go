package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteAndStop(t *testing.T) {
	result, err := Complete(map[string]interface{}{"done": true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"done":true}`, string(result.Output))
	assert.False(t, result.StopLoop)
	assert.Nil(t, result.Suspend)

	result, err = Complete(nil)
	require.NoError(t, err)
	assert.Empty(t, result.Output)

	result, err = Stop(map[string]interface{}{"reviewed": true})
	require.NoError(t, err)
	assert.True(t, result.StopLoop)
	assert.JSONEq(t, `{"reviewed":true}`, string(result.Output))
}

func TestStepContextBindState(t *testing.T) {
	sc := NewStepContext("exec-1", "validate", 0, []byte(`{"items": 7}`), nil, nil, nil, nil)

	var state struct {
		Items int `json:"items"`
	}
	require.NoError(t, sc.BindState(&state))
	assert.Equal(t, 7, state.Items)

	empty := NewStepContext("exec-1", "validate", 0, nil, nil, nil, nil, nil)
	require.NoError(t, empty.BindState(&state))
}

func TestStepContextRequestConfirmation(t *testing.T) {
	sc := NewStepContext("exec-1", "approve", 0, nil, nil, nil, nil, nil)

	result, err := sc.RequestConfirmation("Large order: 10 items. Approve?", map[string]int{"items": 10})
	require.NoError(t, err)
	require.NotNil(t, result.Suspend)

	assert.Equal(t, "Large order: 10 items. Approve?", result.Suspend.Hint)
	assert.NotEmpty(t, result.Suspend.Token)
	assert.JSONEq(t, `{"items":10}`, string(result.Suspend.Payload))
	assert.WithinDuration(t, time.Now(), result.Suspend.RequestedAt, time.Minute)
}

func TestStepContextDecision(t *testing.T) {
	d := &Decision{Confirmed: true, DecidedAt: time.Now()}
	sc := NewStepContext("exec-1", "approve", 0, nil, d, nil, nil, nil)
	assert.Equal(t, d, sc.Decision())

	fresh := NewStepContext("exec-1", "approve", 0, nil, nil, nil, nil, nil)
	assert.Nil(t, fresh.Decision())
}
