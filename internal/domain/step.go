package domain

import (
	"context"
	"log/slog"

	json "github.com/goccy/go-json"
)

// Handler is the unit of work. It receives the accumulated execution state
// through the StepContext and returns either a completed result or a
// suspension request. Handlers must be deterministic given the same state
// and decision.
type Handler func(ctx context.Context, sc *StepContext) (*StepResult, error)

// Step is one node in an execution graph. Immutable once the graph is
// registered.
type Step struct {
	ID        string
	DependsOn []string
	Loop      string
	Handler   Handler
}

// StepResult is what a handler yields: a JSON output merged into the
// execution state, a suspension request, or a loop stop signal.
type StepResult struct {
	Output   json.RawMessage
	Suspend  *SuspensionRequest
	StopLoop bool
}

// Complete marshals output into a step result. A nil output completes the
// step without touching the state.
func Complete(output interface{}) (*StepResult, error) {
	if output == nil {
		return &StepResult{}, nil
	}
	data, err := json.Marshal(output)
	if err != nil {
		return nil, Error{
			Type:    ErrorTypeInternal,
			Message: "failed to serialize step output",
			Details: map[string]interface{}{
				"error": err.Error(),
			},
		}
	}
	return &StepResult{Output: data}, nil
}

// Stop completes the step and signals its loop group to terminate after
// the current iteration.
func Stop(output interface{}) (*StepResult, error) {
	result, err := Complete(output)
	if err != nil {
		return nil, err
	}
	result.StopLoop = true
	return result, nil
}

// ToolInvoker dispatches a named tool call. Unknown names fail NotFound;
// handler failures come back as a tagged error result, never as an error.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, args json.RawMessage) (*ToolResult, error)
}

// OracleDecider is the opaque external decision-maker. It either answers
// or asks for a named tool invocation. Never retried automatically
// mid-step.
type OracleDecider interface {
	Decide(ctx context.Context, state json.RawMessage, instructions string) (*OracleDecision, error)
}

// StepContext carries the per-step view of an execution: accumulated
// state, the decision on resume, and the tool/oracle ports. State flows
// through explicitly; there is no ambient shared session.
type StepContext struct {
	executionID string
	stepID      string
	iteration   int
	state       json.RawMessage
	decision    *Decision
	tools       ToolInvoker
	oracle      OracleDecider
	logger      *slog.Logger
}

func NewStepContext(executionID, stepID string, iteration int, state json.RawMessage, decision *Decision, tools ToolInvoker, oracle OracleDecider, logger *slog.Logger) *StepContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &StepContext{
		executionID: executionID,
		stepID:      stepID,
		iteration:   iteration,
		state:       state,
		decision:    decision,
		tools:       tools,
		oracle:      oracle,
		logger:      logger.With("execution_id", executionID, "step", stepID),
	}
}

func (sc *StepContext) ExecutionID() string { return sc.executionID }

func (sc *StepContext) StepID() string { return sc.stepID }

// Iteration is the zero-based loop iteration, always 0 outside loop groups.
func (sc *StepContext) Iteration() int { return sc.iteration }

// State returns the merged execution state as raw JSON.
func (sc *StepContext) State() json.RawMessage { return sc.state }

// BindState unmarshals the execution state into v.
func (sc *StepContext) BindState(v interface{}) error {
	if len(sc.state) == 0 {
		return nil
	}
	if err := json.Unmarshal(sc.state, v); err != nil {
		return Error{
			Type:    ErrorTypeInternal,
			Message: "failed to bind execution state",
			Details: map[string]interface{}{
				"execution_id": sc.executionID,
				"step":         sc.stepID,
				"error":        err.Error(),
			},
		}
	}
	return nil
}

// Decision returns the approver's answer when this step re-runs after a
// resume, nil on a first run.
func (sc *StepContext) Decision() *Decision { return sc.decision }

// RequestConfirmation issues a suspension request. The call is synchronous
// and immediately unwinds to the engine; the paired decision arrives
// out-of-band through Resume.
func (sc *StepContext) RequestConfirmation(hint string, payload interface{}) (*StepResult, error) {
	req, err := NewSuspensionRequest(hint, payload)
	if err != nil {
		return nil, err
	}
	sc.logger.Debug("step requested confirmation", "hint", hint, "token", req.Token)
	return &StepResult{Suspend: req}, nil
}

// InvokeTool dispatches a registered tool with JSON-serialized args.
func (sc *StepContext) InvokeTool(ctx context.Context, name string, args interface{}) (*ToolResult, error) {
	if sc.tools == nil {
		return nil, Error{
			Type:    ErrorTypeInternal,
			Message: "no tool registry configured",
			Details: map[string]interface{}{
				"execution_id": sc.executionID,
				"step":         sc.stepID,
				"tool":         name,
			},
		}
	}
	var raw json.RawMessage
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, Error{
				Type:    ErrorTypeInternal,
				Message: "failed to serialize tool args",
				Details: map[string]interface{}{
					"tool":  name,
					"error": err.Error(),
				},
			}
		}
		raw = data
	}
	return sc.tools.Invoke(ctx, name, raw)
}

// Oracle returns the configured decision oracle, nil when none is wired.
func (sc *StepContext) Oracle() OracleDecider { return sc.oracle }

func (sc *StepContext) Logger() *slog.Logger { return sc.logger }
