package engine

import (
	"context"

	"github.com/fermata-io/fermata/internal/domain"
)

// runLoopGroup evaluates a loop group from wherever the execution left
// off: a partially finished iteration (after a resume) continues with
// only its remaining members, then further iterations run in full until a
// member signals stop, a member suspends, or the ceiling is exhausted.
// Ceiling exhaustion completes the group; it is not a failure.
func (e *Engine) runLoopGroup(ctx context.Context, graph *domain.Graph, exec *domain.Execution, loopID string, decision *domain.Decision) (*unitOutcome, error) {
	loop, _ := graph.Loop(loopID)
	members := graph.LoopMembers(loopID)

	iteration := exec.Iterations[loopID]

	memberDone := make(map[string]bool)
	for _, member := range members {
		if exec.Done[member.ID] {
			memberDone[member.ID] = true
		}
	}
	stopped := e.stopSignalled(graph, exec, loopID, iteration)

	outcome := &unitOutcome{
		unitID: loopID,
		isLoop: true,
	}

	// Members chain state within an iteration; the snapshot starts from
	// the execution state and folds each member's output in locally. The
	// global state merge happens once, when the wave is applied.
	state := exec.State

	for iteration < loop.MaxIterations {
		for {
			ready := e.readyMembers(graph, loopID, members, memberDone)
			if len(ready) == 0 {
				break
			}

			for _, member := range ready {
				var d *domain.Decision
				if decision != nil && exec.SuspendedStep == member.ID {
					d = decision
					decision = nil
				}

				stepOutcome, err := e.runStep(ctx, graph, exec, member, state, iteration, d)
				if err != nil {
					return nil, err
				}

				if stepOutcome.suspension != nil {
					outcome.suspension = stepOutcome.suspension
					outcome.suspended = member.ID
					outcome.doneMembers = memberDone
					outcome.iterations = iteration
					return outcome, nil
				}

				record := stepOutcome.records[0]
				outcome.records = append(outcome.records, record)
				memberDone[member.ID] = true
				if record.StoppedLoop {
					stopped = true
				}

				merged, err := domain.MergeStates(state, record.Output)
				if err != nil {
					e.logger.Error("failed to merge loop member output",
						"execution_id", exec.ID,
						"loop", loopID,
						"step", member.ID,
						"iteration", iteration,
						"error", err.Error(),
					)
				} else {
					state = merged
				}
			}
		}

		// Iteration complete.
		iteration++

		if stopped {
			e.logger.Debug("loop stopped by member",
				"execution_id", exec.ID,
				"loop", loopID,
				"iterations", iteration,
			)
			outcome.iterations = iteration
			outcome.finishedLoop = true
			return outcome, nil
		}

		if iteration >= loop.MaxIterations {
			e.logger.Info("loop iteration ceiling reached",
				"execution_id", exec.ID,
				"loop", loopID,
				"max_iterations", loop.MaxIterations,
			)
			outcome.iterations = iteration
			outcome.finishedLoop = true
			outcome.iterationLimitHit = true
			return outcome, nil
		}

		memberDone = make(map[string]bool)
	}

	// Reachable only when a resumed execution carries iterations at the
	// ceiling already; treat as exhausted.
	outcome.iterations = iteration
	outcome.finishedLoop = true
	outcome.iterationLimitHit = true
	return outcome, nil
}

// readyMembers returns not-yet-done members whose intra-loop dependencies
// are satisfied, in registration order. External dependencies were already
// satisfied when the group became schedulable.
func (e *Engine) readyMembers(graph *domain.Graph, loopID string, members []*domain.Step, memberDone map[string]bool) []*domain.Step {
	var ready []*domain.Step
	for _, member := range members {
		if memberDone[member.ID] {
			continue
		}
		ok := true
		for _, dep := range member.DependsOn {
			if depStep, isStep := graph.Step(dep); isStep && depStep.Loop == loopID {
				if !memberDone[dep] {
					ok = false
					break
				}
			}
		}
		if ok {
			ready = append(ready, member)
		}
	}
	return ready
}

// stopSignalled reports whether a member of the loop raised the stop
// signal during the current (possibly suspended and resumed) iteration.
// The signal lives in the step log so it survives a checkpoint round trip.
func (e *Engine) stopSignalled(graph *domain.Graph, exec *domain.Execution, loopID string, iteration int) bool {
	for _, record := range exec.Log {
		if !record.StoppedLoop || record.Iteration != iteration {
			continue
		}
		if step, ok := graph.Step(record.StepID); ok && step.Loop == loopID && exec.Done[record.StepID] {
			return true
		}
	}
	return false
}
