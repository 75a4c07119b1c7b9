package ports

import (
	"context"

	"github.com/fermata-io/fermata/internal/domain"
)

// PendingApproval is a suspension awaiting an external decision.
type PendingApproval struct {
	ExecutionID string                    `json:"execution_id"`
	Request     *domain.SuspensionRequest `json:"request"`
}

// ArrivedDecision pairs a decision with the execution it resumes.
type ArrivedDecision struct {
	ExecutionID string           `json:"execution_id"`
	Decision    *domain.Decision `json:"decision"`
}

// GatewayPort publishes pending decisions to the external approver and
// collects answers. Publishing never blocks on the human; decisions
// arrive out-of-band and are drained with PollDecisions.
type GatewayPort interface {
	Publish(ctx context.Context, executionID string, req *domain.SuspensionRequest) error
	Withdraw(ctx context.Context, executionID string) error
	Pending(ctx context.Context) ([]PendingApproval, error)
	PollDecisions(ctx context.Context) ([]ArrivedDecision, error)
}
