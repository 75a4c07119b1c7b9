package gateway

import (
	"context"
	"sort"
	"sync"

	"github.com/fermata-io/fermata/internal/domain"
	"github.com/fermata-io/fermata/internal/ports"
)

// MemoryGateway keeps pending approvals and decisions in process. Tests
// and embeddings that answer their own approvals use SubmitDecision as
// the out-of-band channel.
type MemoryGateway struct {
	mu        sync.Mutex
	pending   map[string]*domain.SuspensionRequest
	decisions map[string]*domain.Decision
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		pending:   make(map[string]*domain.SuspensionRequest),
		decisions: make(map[string]*domain.Decision),
	}
}

func (g *MemoryGateway) Publish(ctx context.Context, executionID string, req *domain.SuspensionRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending[executionID] = req
	return nil
}

func (g *MemoryGateway) Withdraw(ctx context.Context, executionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, executionID)
	return nil
}

func (g *MemoryGateway) Pending(ctx context.Context) ([]ports.PendingApproval, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]ports.PendingApproval, 0, len(g.pending))
	for id, req := range g.pending {
		out = append(out, ports.PendingApproval{ExecutionID: id, Request: req})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecutionID < out[j].ExecutionID })
	return out, nil
}

// SubmitDecision records an approver's answer for a suspended execution.
func (g *MemoryGateway) SubmitDecision(executionID string, decision *domain.Decision) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.decisions[executionID] = decision
}

func (g *MemoryGateway) PollDecisions(ctx context.Context) ([]ports.ArrivedDecision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]ports.ArrivedDecision, 0, len(g.decisions))
	for id, d := range g.decisions {
		out = append(out, ports.ArrivedDecision{ExecutionID: id, Decision: d})
		delete(g.decisions, id)
		delete(g.pending, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecutionID < out[j].ExecutionID })
	return out, nil
}
