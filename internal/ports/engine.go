package ports

import (
	"context"

	json "github.com/goccy/go-json"

	"github.com/fermata-io/fermata/internal/domain"
)

// EnginePort runs registered graphs. Start evaluates until completion or
// the first suspension; Resume reloads the checkpoint for the given
// execution ID, injects the decision into the suspended step, and
// continues without re-running completed steps.
type EnginePort interface {
	RegisterGraph(graph *domain.Graph) error
	Start(ctx context.Context, graphName string, input json.RawMessage) (*domain.ExecutionResult, error)
	Resume(ctx context.Context, executionID string, decision *domain.Decision) (*domain.ExecutionResult, error)
	Cancel(ctx context.Context, executionID string) error
	Status(ctx context.Context, executionID string) (*domain.Execution, error)
}
