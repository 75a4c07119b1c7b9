// Package fermata provides a pausable, resumable multi-step task executor
// with human-in-the-loop checkpoints.
//
// Fermata runs registered graphs of steps. A step may suspend the whole
// execution to ask a human for confirmation; the engine checkpoints the
// execution, surfaces a pending result with the execution ID and a hint,
// and unwinds. Minutes or days later the caller resumes by ID with the
// decision, and the execution picks up exactly where it stopped without
// re-running completed steps. Loop sub-graphs repeat until a member
// signals stop or a mandatory finite iteration ceiling is exhausted.
//
// Basic usage:
//
//	m, err := fermata.NewWithConfig(&fermata.Config{DataDir: "./data"})
//	if err != nil { ... }
//	defer m.Close()
//
//	g := fermata.NewGraph("order-approval").
//	    AddStep("validate", validateOrder).
//	    AddStep("approve", approveOrder, "validate").
//	    AddStep("fulfill", fulfillOrder, "approve")
//	m.RegisterGraph(g)
//
//	result, err := m.Start(ctx, "order-approval", input)
//	if result.Pending() {
//	    // later, once the human decided:
//	    result, err = m.Resume(ctx, result.ExecutionID, &fermata.Decision{Confirmed: true})
//	}
package fermata

import (
	"github.com/fermata-io/fermata/internal/adapters/oracle"
	"github.com/fermata-io/fermata/internal/core"
	"github.com/fermata-io/fermata/internal/domain"
	"github.com/fermata-io/fermata/internal/ports"
)

// Manager wires the checkpoint store, confirmation gateway, tool registry,
// and execution engine into one embeddable facade.
type Manager = core.Manager

// Config controls how a Manager wires its store, gateway, and engine.
type Config = domain.Config

// Graph is an immutable, validated set of steps and loop groups.
type Graph = domain.Graph

// Step is one unit of work inside a graph.
type Step = domain.Step

// Handler executes one step against the current execution state.
type Handler = domain.Handler

// StepContext carries the state snapshot, suspension machinery, and
// collaborators into a step handler.
type StepContext = domain.StepContext

// StepResult is what a handler returns: an output document to merge into
// the state, an optional suspension request, or a loop stop signal.
type StepResult = domain.StepResult

// SuspensionRequest describes why an execution paused and what the
// external approver should look at.
type SuspensionRequest = domain.SuspensionRequest

// Decision is the human answer injected on resume.
type Decision = domain.Decision

// Execution is the engine-owned record of one run through a graph.
type Execution = domain.Execution

// ExecutionResult is what Start and Resume hand back to the caller.
type ExecutionResult = domain.ExecutionResult

// ExecutionStatus enumerates the lifecycle states of an execution.
type ExecutionStatus = domain.ExecutionStatus

// StepRecord is one completed step run in the execution log.
type StepRecord = domain.StepRecord

// ToolResult is the tagged outcome of a tool invocation.
type ToolResult = domain.ToolResult

// ToolStatus tags a tool result as success or error.
type ToolStatus = domain.ToolStatus

// ToolCall names a tool and its arguments, as chosen by the oracle.
type ToolCall = domain.ToolCall

// OracleDecision is one turn of the external decision collaborator:
// either a terminal answer or a tool call to execute and report back.
type OracleDecision = domain.OracleDecision

// OracleDecider is the opaque external collaborator consulted by
// oracle-backed steps.
type OracleDecider = domain.OracleDecider

// ToolHandler executes one registered tool call.
type ToolHandler = ports.ToolHandler

// PendingApproval is a suspension awaiting an external decision.
type PendingApproval = ports.PendingApproval

const (
	ExecutionStatusRunning   = domain.ExecutionStatusRunning
	ExecutionStatusSuspended = domain.ExecutionStatusSuspended
	ExecutionStatusCompleted = domain.ExecutionStatusCompleted
	ExecutionStatusFailed    = domain.ExecutionStatusFailed

	ToolStatusSuccess = domain.ToolStatusSuccess
	ToolStatusError   = domain.ToolStatusError
)

// NewGraph starts a graph definition with the given name.
func NewGraph(name string) *Graph {
	return domain.NewGraph(name)
}

// DefaultConfig returns a durable on-disk configuration rooted at ./data.
func DefaultConfig() *Config {
	return domain.DefaultConfig()
}

// NewWithConfig builds a Manager from configuration.
func NewWithConfig(config *Config) (*Manager, error) {
	return core.NewWithConfig(config)
}

// New builds a durable Manager rooted at dataDir with default settings.
func New(dataDir string) (*Manager, error) {
	config := domain.DefaultConfig()
	config.DataDir = dataDir
	return core.NewWithConfig(config)
}

// Complete builds a step result whose output document is merged into the
// execution state.
func Complete(output interface{}) (*StepResult, error) {
	return domain.Complete(output)
}

// Stop builds a step result that also signals the enclosing loop group to
// finish after the current iteration.
func Stop(output interface{}) (*StepResult, error) {
	return domain.Stop(output)
}

// NewScriptedOracle builds an oracle that replays a fixed sequence of
// decisions, for tests and demos.
func NewScriptedOracle(turns ...OracleDecision) OracleDecider {
	return oracle.NewScripted(turns...)
}

// OracleAnswerTurn scripts a terminal answer for a scripted oracle.
func OracleAnswerTurn(answer interface{}) OracleDecision {
	return oracle.AnswerTurn(answer)
}

// OracleToolTurn scripts a named tool call for a scripted oracle.
func OracleToolTurn(name string, args interface{}) OracleDecision {
	return oracle.ToolTurn(name, args)
}
