package tools

import (
	"context"
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fermata-io/fermata/internal/domain"
)

func echoTool(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	return args, nil
}

func TestRegistryRegisterValidation(t *testing.T) {
	r := NewRegistry(nil)

	assert.Error(t, r.Register("", echoTool))
	assert.Error(t, r.Register("echo", nil))

	require.NoError(t, r.Register("echo", echoTool))
	err := r.Register("echo", echoTool)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistryInvokeSuccess(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register("echo", echoTool))

	result, err := r.Invoke(context.Background(), "echo", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)

	assert.Equal(t, domain.ToolStatusSuccess, result.Status)
	assert.JSONEq(t, `{"x":1}`, string(result.Data))
	assert.Empty(t, result.ErrorMessage)
}

func TestRegistryInvokeHandlerFailureIsTagged(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register("flaky", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		return nil, errors.New("upstream unavailable")
	}))

	result, err := r.Invoke(context.Background(), "flaky", nil)
	require.NoError(t, err, "handler failures must come back as tagged results")

	assert.Equal(t, domain.ToolStatusError, result.Status)
	assert.Equal(t, "upstream unavailable", result.ErrorMessage)
}

func TestRegistryInvokeUnknownTool(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Invoke(context.Background(), "ghost", nil)
	assert.True(t, domain.IsNotFound(err))
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register("zeta", echoTool))
	require.NoError(t, r.Register("alpha", echoTool))

	assert.Equal(t, []string{"alpha", "zeta"}, r.Names())
}
