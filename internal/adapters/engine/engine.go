package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/fermata-io/fermata/internal/domain"
	"github.com/fermata-io/fermata/internal/ports"
)

// Engine evaluates registered graphs. One logical execution advances
// strictly sequentially through its own cursor; independent executions
// share nothing but the checkpoint store.
type Engine struct {
	store   ports.StoragePort
	gateway ports.GatewayPort
	tools   ports.ToolRegistryPort
	oracle  ports.OraclePort
	logger  *slog.Logger

	defaultMaxIterations int

	mu     sync.RWMutex
	graphs map[string]*domain.Graph

	locks *keyedMutex
}

func New(store ports.StoragePort, gateway ports.GatewayPort, tools ports.ToolRegistryPort, oracle ports.OraclePort, defaultMaxIterations int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultMaxIterations < 1 {
		defaultMaxIterations = 10
	}
	return &Engine{
		store:                store,
		gateway:              gateway,
		tools:                tools,
		oracle:               oracle,
		logger:               logger.With("component", "engine"),
		defaultMaxIterations: defaultMaxIterations,
		graphs:               make(map[string]*domain.Graph),
		locks:                newKeyedMutex(),
	}
}

// SetOracle installs the external decision collaborator. Call before
// starting executions whose steps consult the oracle.
func (e *Engine) SetOracle(oracle ports.OraclePort) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.oracle = oracle
}

// RegisterGraph validates and stores a graph definition. Loop groups
// declared with a zero ceiling inherit the engine default; the ceiling is
// always finite. Graphs are immutable once registered and are looked up
// by name on resume.
func (e *Engine) RegisterGraph(graph *domain.Graph) error {
	if graph == nil {
		return domain.NewValidationError("graph", "cannot be nil")
	}

	for _, unitID := range graph.Units() {
		if loop, ok := graph.Loop(unitID); ok && loop.MaxIterations == 0 {
			loop.MaxIterations = e.defaultMaxIterations
		}
	}

	if err := graph.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.graphs[graph.Name]; exists {
		return domain.Error{
			Type:    domain.ErrorTypeConflict,
			Message: fmt.Sprintf("graph already registered: %s", graph.Name),
			Details: map[string]interface{}{
				"graph": graph.Name,
			},
		}
	}
	e.graphs[graph.Name] = graph

	e.logger.Debug("graph registered", "graph", graph.Name, "steps", len(graph.Steps()))
	return nil
}

func (e *Engine) graph(name string) (*domain.Graph, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	g, ok := e.graphs[name]
	if !ok {
		return nil, domain.NewNotFoundError("graph", name)
	}
	return g, nil
}

// Start creates a new execution and evaluates until completion or the
// first suspension.
func (e *Engine) Start(ctx context.Context, graphName string, input json.RawMessage) (*domain.ExecutionResult, error) {
	graph, err := e.graph(graphName)
	if err != nil {
		return nil, err
	}

	exec := domain.NewExecution(uuid.NewString(), graphName)
	exec.State = input

	e.logger.Info("execution started",
		"execution_id", exec.ID,
		"graph", graphName,
	)

	if err := e.store.SaveExecution(ctx, exec); err != nil {
		return nil, err
	}

	return e.run(ctx, graph, exec, nil)
}

// Resume reloads the checkpoint for executionID, injects the decision
// into the step that requested suspension, and continues evaluation.
// A missing (or expired, or already-consumed) checkpoint fails NotFound;
// a nil decision on a pending execution fails SuspensionWithoutDecision.
func (e *Engine) Resume(ctx context.Context, executionID string, decision *domain.Decision) (*domain.ExecutionResult, error) {
	unlock := e.locks.Lock(executionID)
	defer unlock()

	cp, err := e.store.LoadCheckpoint(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if decision == nil {
		return nil, domain.Error{
			Type:    domain.ErrorTypeSuspensionWithoutDecision,
			Message: fmt.Sprintf("execution %s is awaiting a decision", executionID),
			Details: map[string]interface{}{
				"execution_id": executionID,
				"hint":         cp.Execution.Suspension.Hint,
			},
		}
	}

	exec := cp.Execution
	exec.Status = domain.ExecutionStatusRunning

	graph, err := e.graph(exec.GraphName)
	if err != nil {
		return nil, domain.Error{
			Type:    domain.ErrorTypeValidation,
			Message: fmt.Sprintf("graph %s is no longer registered", exec.GraphName),
			Details: map[string]interface{}{
				"execution_id": executionID,
				"graph":        exec.GraphName,
			},
		}
	}

	if err := e.gateway.Withdraw(ctx, executionID); err != nil {
		e.logger.Warn("failed to withdraw pending approval",
			"execution_id", executionID,
			"error", err.Error(),
		)
	}

	e.logger.Info("execution resumed",
		"execution_id", executionID,
		"graph", exec.GraphName,
		"step", exec.SuspendedStep,
		"confirmed", decision.Confirmed,
	)

	return e.run(ctx, graph, &exec, decision)
}

// Cancel deletes the execution's checkpoint and marks it failed. In-flight
// concurrent branches are not chased; cancellation is cooperative at step
// boundaries only.
func (e *Engine) Cancel(ctx context.Context, executionID string) error {
	unlock := e.locks.Lock(executionID)
	defer unlock()

	exec, err := e.store.LoadExecution(ctx, executionID)
	if err != nil {
		return err
	}

	if err := e.store.DeleteCheckpoint(ctx, executionID); err != nil {
		return err
	}
	if err := e.gateway.Withdraw(ctx, executionID); err != nil {
		e.logger.Warn("failed to withdraw pending approval",
			"execution_id", executionID,
			"error", err.Error(),
		)
	}

	exec.Status = domain.ExecutionStatusFailed
	exec.LastError = "cancelled by caller"
	now := time.Now()
	exec.CompletedAt = &now
	exec.Suspension = nil
	exec.SuspendedStep = ""

	e.logger.Info("execution cancelled", "execution_id", executionID)
	return e.store.SaveExecution(ctx, exec)
}

// Status returns the last persisted execution record.
func (e *Engine) Status(ctx context.Context, executionID string) (*domain.Execution, error) {
	return e.store.LoadExecution(ctx, executionID)
}
