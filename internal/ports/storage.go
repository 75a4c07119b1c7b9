package ports

import (
	"context"

	"github.com/fermata-io/fermata/internal/domain"
)

// StoragePort persists checkpoints and execution records. Save overwrites
// the single checkpoint slot per execution ID; Load on a missing or
// expired ID fails with a NotFound error. Implementations serialize
// operations per identifier so overlapping resumes cannot interleave a
// load with a delete.
type StoragePort interface {
	SaveCheckpoint(ctx context.Context, executionID string, cp *domain.Checkpoint) error
	LoadCheckpoint(ctx context.Context, executionID string) (*domain.Checkpoint, error)
	DeleteCheckpoint(ctx context.Context, executionID string) error

	SaveExecution(ctx context.Context, exec *domain.Execution) error
	LoadExecution(ctx context.Context, executionID string) (*domain.Execution, error)

	Close() error
}
