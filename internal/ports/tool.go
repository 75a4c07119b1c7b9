package ports

import (
	"context"

	json "github.com/goccy/go-json"

	"github.com/fermata-io/fermata/internal/domain"
)

// ToolHandler executes one tool call. A returned error is converted into
// a tagged error result by the registry; it never aborts the engine.
type ToolHandler func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// ToolRegistryPort is the closed set of invocable tools. Names are
// validated at registration time; dispatch is by exact name only.
type ToolRegistryPort interface {
	Register(name string, handler ToolHandler) error
	Invoke(ctx context.Context, name string, args json.RawMessage) (*domain.ToolResult, error)
	Names() []string
}
