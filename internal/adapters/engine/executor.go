package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/fermata-io/fermata/internal/domain"
)

// unitOutcome is the read-only product of running one schedulable unit
// (a top-level step or a whole loop group) inside a wave. Outcomes are
// applied to the execution sequentially, in registration order, after
// the wave joins.
type unitOutcome struct {
	unitID string
	isLoop bool

	records    []domain.StepRecord
	suspension *domain.SuspensionRequest
	suspended  string

	// loop bookkeeping
	doneMembers       map[string]bool
	iterations        int
	finishedLoop      bool
	iterationLimitHit bool
}

// stepFailure pins a handler error to the step that raised it so a failed
// execution can report the last known step and reason.
type stepFailure struct {
	stepID string
	err    error
}

func (f *stepFailure) Error() string {
	return fmt.Sprintf("step %s: %v", f.stepID, f.err)
}

func (f *stepFailure) Unwrap() error {
	return f.err
}

// run drives the execution forward wave by wave until every unit is done
// or a step suspends. The decision, when present, is delivered to exactly
// the step recorded as suspended and to no other.
func (e *Engine) run(ctx context.Context, graph *domain.Graph, exec *domain.Execution, decision *domain.Decision) (*domain.ExecutionResult, error) {
	for {
		units := e.readyUnits(graph, exec)
		if len(units) == 0 {
			if e.allUnitsDone(graph, exec) {
				return e.complete(ctx, exec)
			}
			return nil, domain.Error{
				Type:    domain.ErrorTypeInternal,
				Message: "no runnable steps but execution is incomplete",
				Details: map[string]interface{}{
					"execution_id": exec.ID,
					"graph":        graph.Name,
				},
			}
		}

		outcomes, err := e.runWave(ctx, graph, exec, units, decision)
		decision = nil

		if err != nil {
			var failure *stepFailure
			if errors.As(err, &failure) {
				return e.fail(ctx, exec, failure.stepID, failure.err)
			}
			return nil, err
		}

		suspension := e.applyWave(graph, exec, outcomes)
		if suspension != nil {
			return e.suspend(ctx, exec)
		}
	}
}

// readyUnits returns not-yet-done units whose dependencies are all
// satisfied, in registration order.
func (e *Engine) readyUnits(graph *domain.Graph, exec *domain.Execution) []string {
	var ready []string
	for _, unitID := range graph.Units() {
		if step, ok := graph.Step(unitID); ok {
			if exec.Done[unitID] {
				continue
			}
			if e.depsSatisfied(graph, exec, step.DependsOn) {
				ready = append(ready, unitID)
			}
			continue
		}
		if exec.FinishedLoops[unitID] {
			continue
		}
		if e.depsSatisfied(graph, exec, graph.ExternalDeps(unitID)) {
			ready = append(ready, unitID)
		}
	}
	return ready
}

func (e *Engine) depsSatisfied(graph *domain.Graph, exec *domain.Execution, deps []string) bool {
	for _, dep := range deps {
		if _, ok := graph.Loop(dep); ok {
			if !exec.FinishedLoops[dep] {
				return false
			}
			continue
		}
		if !exec.Done[dep] {
			return false
		}
	}
	return true
}

func (e *Engine) allUnitsDone(graph *domain.Graph, exec *domain.Execution) bool {
	for _, unitID := range graph.Units() {
		if _, ok := graph.Loop(unitID); ok {
			if !exec.FinishedLoops[unitID] {
				return false
			}
			continue
		}
		if !exec.Done[unitID] {
			return false
		}
	}
	return true
}

// runWave executes the ready units concurrently and joins before anything
// mutates the execution. The execution is read-only for the duration of
// the wave; every unit works against the same state snapshot.
func (e *Engine) runWave(ctx context.Context, graph *domain.Graph, exec *domain.Execution, units []string, decision *domain.Decision) ([]*unitOutcome, error) {
	outcomes := make([]*unitOutcome, len(units))
	g, gctx := errgroup.WithContext(ctx)

	for i, unitID := range units {
		idx := i
		id := unitID
		g.Go(func() error {
			if step, ok := graph.Step(id); ok {
				var d *domain.Decision
				if decision != nil && exec.SuspendedStep == id {
					d = decision
				}
				outcome, err := e.runStep(gctx, graph, exec, step, exec.State, 0, d)
				if err != nil {
					return err
				}
				outcomes[idx] = outcome
				return nil
			}

			var d *domain.Decision
			if decision != nil {
				if suspendedStep, ok := graph.Step(exec.SuspendedStep); ok && suspendedStep.Loop == id {
					d = decision
				}
			}
			outcome, err := e.runLoopGroup(gctx, graph, exec, id, d)
			if err != nil {
				return err
			}
			outcomes[idx] = outcome
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// runStep executes one step against the given state snapshot.
func (e *Engine) runStep(ctx context.Context, graph *domain.Graph, exec *domain.Execution, step *domain.Step, state json.RawMessage, iteration int, decision *domain.Decision) (*unitOutcome, error) {
	sc := domain.NewStepContext(exec.ID, step.ID, iteration, state, decision, e.tools, e.oracle, e.logger)
	stepCtx := domain.WithExecutionContext(ctx, &domain.ExecutionContext{
		ExecutionID: exec.ID,
		GraphName:   graph.Name,
		StepID:      step.ID,
		Iteration:   iteration,
		StartedAt:   exec.StartedAt,
	})

	e.logger.Debug("executing step",
		"execution_id", exec.ID,
		"step", step.ID,
		"iteration", iteration,
		"has_decision", decision != nil,
	)

	startTime := time.Now()
	result, err := callHandler(stepCtx, step, sc)
	duration := time.Since(startTime)

	if err != nil {
		e.logger.Error("step execution failed",
			"execution_id", exec.ID,
			"step", step.ID,
			"duration", duration,
			"error", err.Error(),
		)
		return nil, &stepFailure{stepID: step.ID, err: err}
	}

	if result.Suspend != nil {
		e.logger.Debug("step suspended",
			"execution_id", exec.ID,
			"step", step.ID,
			"hint", result.Suspend.Hint,
		)
		return &unitOutcome{
			unitID:     step.ID,
			suspension: result.Suspend,
			suspended:  step.ID,
		}, nil
	}

	if result.StopLoop && step.Loop == "" {
		e.logger.Warn("stop signal from step outside a loop group ignored",
			"execution_id", exec.ID,
			"step", step.ID,
		)
	}

	return &unitOutcome{
		unitID: step.ID,
		records: []domain.StepRecord{{
			StepID:      step.ID,
			Iteration:   iteration,
			Output:      result.Output,
			StoppedLoop: result.StopLoop && step.Loop != "",
			ExecutedAt:  startTime,
			Duration:    duration,
		}},
	}, nil
}

// applyWave folds the wave's outcomes into the execution in registration
// order. When more than one unit suspended in the same wave, the first in
// order wins the pairing; the others stay incomplete and re-issue their
// requests on a later pass. Returns the winning suspension, if any.
func (e *Engine) applyWave(graph *domain.Graph, exec *domain.Execution, outcomes []*unitOutcome) *domain.SuspensionRequest {
	exec.Suspension = nil
	exec.SuspendedStep = ""

	var suspension *domain.SuspensionRequest

	for _, outcome := range outcomes {
		if outcome == nil {
			continue
		}

		for _, record := range outcome.records {
			merged, err := domain.MergeStates(exec.State, record.Output)
			if err != nil {
				// Outputs are produced by Complete/Stop and are valid
				// JSON; a merge failure here means a handler bypassed
				// them. Log and keep the prior state.
				e.logger.Error("failed to merge step output",
					"execution_id", exec.ID,
					"step", record.StepID,
					"error", err.Error(),
				)
			} else {
				exec.State = merged
			}
			exec.Log = append(exec.Log, record)
			exec.Done[record.StepID] = true
			exec.LastStep = record.StepID
		}

		if outcome.isLoop {
			for _, member := range graph.LoopMembers(outcome.unitID) {
				delete(exec.Done, member.ID)
			}
			for id := range outcome.doneMembers {
				exec.Done[id] = true
			}
			exec.Iterations[outcome.unitID] = outcome.iterations
			if outcome.finishedLoop {
				exec.FinishedLoops[outcome.unitID] = true
				if outcome.iterationLimitHit {
					exec.IterationLimitHit = true
				}
			}
		}

		if outcome.suspension != nil && suspension == nil {
			suspension = outcome.suspension
			exec.Suspension = outcome.suspension
			exec.SuspendedStep = outcome.suspended
		}
	}

	return suspension
}

// suspend persists the checkpoint (single slot, overwritten), publishes
// the pending approval, and unwinds to the caller. No engine resource is
// held while the human decides.
func (e *Engine) suspend(ctx context.Context, exec *domain.Execution) (*domain.ExecutionResult, error) {
	exec.Status = domain.ExecutionStatusSuspended

	cp := domain.NewCheckpoint(exec)
	if err := e.store.SaveCheckpoint(ctx, exec.ID, cp); err != nil {
		return nil, err
	}
	if err := e.store.SaveExecution(ctx, exec); err != nil {
		return nil, err
	}

	if err := e.gateway.Publish(ctx, exec.ID, exec.Suspension); err != nil {
		e.logger.Warn("failed to publish pending approval",
			"execution_id", exec.ID,
			"error", err.Error(),
		)
	}

	e.logger.Info("execution suspended",
		"execution_id", exec.ID,
		"step", exec.SuspendedStep,
		"hint", exec.Suspension.Hint,
	)

	return &domain.ExecutionResult{
		ExecutionID:   exec.ID,
		Status:        domain.ExecutionStatusSuspended,
		State:         exec.State,
		Hint:          exec.Suspension.Hint,
		SuspendedStep: exec.SuspendedStep,
	}, nil
}

// complete consumes the checkpoint so a later resume fails NotFound.
func (e *Engine) complete(ctx context.Context, exec *domain.Execution) (*domain.ExecutionResult, error) {
	exec.Status = domain.ExecutionStatusCompleted
	now := time.Now()
	exec.CompletedAt = &now
	exec.Suspension = nil
	exec.SuspendedStep = ""

	if err := e.store.DeleteCheckpoint(ctx, exec.ID); err != nil {
		return nil, err
	}
	if err := e.store.SaveExecution(ctx, exec); err != nil {
		return nil, err
	}

	e.logger.Info("execution completed",
		"execution_id", exec.ID,
		"steps", len(exec.Log),
		"iteration_limit_hit", exec.IterationLimitHit,
	)

	return &domain.ExecutionResult{
		ExecutionID:           exec.ID,
		Status:                domain.ExecutionStatusCompleted,
		State:                 exec.State,
		IterationLimitReached: exec.IterationLimitHit,
		LastStep:              exec.LastStep,
	}, nil
}

// fail records the failing step and reason, consumes the checkpoint, and
// reports the failure as a result rather than a call error: the call did
// what it could, the execution is what failed.
func (e *Engine) fail(ctx context.Context, exec *domain.Execution, stepID string, cause error) (*domain.ExecutionResult, error) {
	exec.Status = domain.ExecutionStatusFailed
	exec.LastStep = stepID
	exec.LastError = cause.Error()
	now := time.Now()
	exec.CompletedAt = &now
	exec.Suspension = nil
	exec.SuspendedStep = ""

	if err := e.store.DeleteCheckpoint(ctx, exec.ID); err != nil {
		e.logger.Error("failed to delete checkpoint for failed execution",
			"execution_id", exec.ID,
			"error", err.Error(),
		)
	}
	if err := e.store.SaveExecution(ctx, exec); err != nil {
		e.logger.Error("failed to persist failed execution",
			"execution_id", exec.ID,
			"error", err.Error(),
		)
	}
	if err := e.gateway.Withdraw(ctx, exec.ID); err != nil {
		e.logger.Warn("failed to withdraw pending approval",
			"execution_id", exec.ID,
			"error", err.Error(),
		)
	}

	e.logger.Error("execution failed",
		"execution_id", exec.ID,
		"step", stepID,
		"error", cause.Error(),
	)

	return &domain.ExecutionResult{
		ExecutionID: exec.ID,
		Status:      domain.ExecutionStatusFailed,
		State:       exec.State,
		LastStep:    stepID,
		Error:       cause.Error(),
	}, nil
}

