package core

import (
	"context"
	"log/slog"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/afero"

	"github.com/fermata-io/fermata/internal/adapters/engine"
	"github.com/fermata-io/fermata/internal/adapters/gateway"
	"github.com/fermata-io/fermata/internal/adapters/storage"
	"github.com/fermata-io/fermata/internal/adapters/tools"
	"github.com/fermata-io/fermata/internal/domain"
	"github.com/fermata-io/fermata/internal/ports"
)

// Manager wires the checkpoint store, confirmation gateway, tool registry,
// and engine into one embeddable facade. It owns the lifecycle of the
// adapters it creates.
type Manager struct {
	config  *domain.Config
	logger  *slog.Logger
	store   ports.StoragePort
	gateway ports.GatewayPort
	tools   ports.ToolRegistryPort
	oracle  ports.OraclePort
	engine  *engine.Engine
}

// NewWithConfig builds a manager from configuration. With InMemory set it
// uses the map-backed store and gateway; otherwise badger and the
// file gateway under config.DataDir.
func NewWithConfig(config *domain.Config) (*Manager, error) {
	if config == nil {
		config = domain.DefaultConfig()
	}
	if config.DefaultMaxIterations == 0 {
		config.DefaultMaxIterations = domain.DefaultConfig().DefaultMaxIterations
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}

	m := &Manager{
		config: config,
		logger: logger.With("component", "manager"),
	}

	if config.InMemory {
		m.store = storage.NewMemoryStore(config.ApprovalTTL)
		m.gateway = gateway.NewMemoryGateway()
	} else {
		store, err := storage.NewBadgerStore(config.DataDir, config.ApprovalTTL, logger)
		if err != nil {
			return nil, err
		}
		gw, err := gateway.NewFileGateway(afero.NewOsFs(), config.DataDir, logger)
		if err != nil {
			store.Close()
			return nil, err
		}
		m.store = store
		m.gateway = gw
	}

	m.tools = tools.NewRegistry(logger)
	m.engine = engine.New(m.store, m.gateway, m.tools, m.oracle, config.DefaultMaxIterations, logger)

	return m, nil
}

// SetOracle installs the external decision collaborator. Steps built with
// oracle helpers fail if no oracle was installed before Start.
func (m *Manager) SetOracle(oracle ports.OraclePort) {
	m.oracle = oracle
	m.engine.SetOracle(oracle)
}

// RegisterGraph registers a validated graph under its name.
func (m *Manager) RegisterGraph(graph *domain.Graph) error {
	return m.engine.RegisterGraph(graph)
}

// RegisterTool adds a named tool to the closed registry.
func (m *Manager) RegisterTool(name string, handler ports.ToolHandler) error {
	return m.tools.Register(name, handler)
}

// Start begins a new execution of the named graph with the given input
// document and runs it until completion or the first suspension.
func (m *Manager) Start(ctx context.Context, graphName string, input json.RawMessage) (*domain.ExecutionResult, error) {
	return m.engine.Start(ctx, graphName, input)
}

// Resume continues a suspended execution with the supplied decision.
func (m *Manager) Resume(ctx context.Context, executionID string, decision *domain.Decision) (*domain.ExecutionResult, error) {
	return m.engine.Resume(ctx, executionID, decision)
}

// Cancel abandons a suspended or running execution. Its checkpoint is
// deleted and the execution is marked failed.
func (m *Manager) Cancel(ctx context.Context, executionID string) error {
	return m.engine.Cancel(ctx, executionID)
}

// Status returns the last persisted record for an execution.
func (m *Manager) Status(ctx context.Context, executionID string) (*domain.Execution, error) {
	return m.engine.Status(ctx, executionID)
}

// Pending lists suspensions still awaiting a decision.
func (m *Manager) Pending(ctx context.Context) ([]ports.PendingApproval, error) {
	return m.gateway.Pending(ctx)
}

// ProcessDecisions drains decisions that arrived out-of-band through the
// gateway and resumes their executions one by one. Each resume runs to
// its own completion or next suspension; a failed resume is logged and
// does not block the rest of the batch.
func (m *Manager) ProcessDecisions(ctx context.Context) ([]*domain.ExecutionResult, error) {
	arrived, err := m.gateway.PollDecisions(ctx)
	if err != nil {
		return nil, err
	}

	var results []*domain.ExecutionResult
	for _, a := range arrived {
		result, err := m.engine.Resume(ctx, a.ExecutionID, a.Decision)
		if err != nil {
			m.logger.Error("failed to resume from polled decision",
				"execution_id", a.ExecutionID,
				"error", err.Error(),
			)
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// Close releases the checkpoint store.
func (m *Manager) Close() error {
	return m.store.Close()
}
