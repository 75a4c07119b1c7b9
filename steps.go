package fermata

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/fermata-io/fermata/internal/domain"
)

// ConfirmStep builds a handler that suspends for human confirmation on
// its first run and resolves the decision on resume. hint describes what
// the approver is deciding; payload is attached to the request verbatim.
// A rejected decision completes the step with {outputKey: false} rather
// than failing the execution; branch on it in downstream steps.
func ConfirmStep(outputKey, hint string, payload interface{}) Handler {
	return func(ctx context.Context, sc *StepContext) (*StepResult, error) {
		if d := sc.Decision(); d != nil {
			return Complete(map[string]interface{}{outputKey: d.Confirmed})
		}
		return sc.RequestConfirmation(hint, payload)
	}
}

// OracleStep builds a handler that runs the oracle's decide/act cycle: the
// oracle sees the execution state plus the transcript of earlier tool
// results and either answers or names a tool to invoke. Tool failures are
// tagged results fed back into the next turn, never step errors. The step
// completes with {outputKey: answer} on a terminal answer and fails when
// the turn budget runs out without one.
func OracleStep(outputKey, instructions string, maxTurns int) Handler {
	if maxTurns < 1 {
		maxTurns = 1
	}
	return func(ctx context.Context, sc *StepContext) (*StepResult, error) {
		oracle := sc.Oracle()
		if oracle == nil {
			return nil, domain.Error{
				Type:    domain.ErrorTypeInternal,
				Message: "no oracle configured",
				Details: map[string]interface{}{
					"step": sc.StepID(),
				},
			}
		}

		type turnRecord struct {
			Tool   string             `json:"tool"`
			Args   json.RawMessage    `json:"args,omitempty"`
			Result *domain.ToolResult `json:"result"`
		}
		var transcript []turnRecord

		for turn := 0; turn < maxTurns; turn++ {
			view, err := oracleView(sc.State(), transcript)
			if err != nil {
				return nil, err
			}

			decision, err := oracle.Decide(ctx, view, instructions)
			if err != nil {
				return nil, err
			}

			if decision.ToolCall == nil {
				return Complete(map[string]interface{}{outputKey: decision.Answer})
			}

			result, err := sc.InvokeTool(ctx, decision.ToolCall.Name, decision.ToolCall.Args)
			if err != nil {
				return nil, err
			}
			if result.Status == domain.ToolStatusError {
				sc.Logger().Warn("tool call failed, reporting back to oracle",
					"tool", decision.ToolCall.Name,
					"error", result.ErrorMessage,
				)
			}
			transcript = append(transcript, turnRecord{
				Tool:   decision.ToolCall.Name,
				Args:   decision.ToolCall.Args,
				Result: result,
			})
		}

		return nil, domain.Error{
			Type:    domain.ErrorTypeInternal,
			Message: fmt.Sprintf("oracle gave no answer within %d turns", maxTurns),
			Details: map[string]interface{}{
				"step":      sc.StepID(),
				"max_turns": maxTurns,
			},
		}
	}
}

// oracleView packages the execution state and the tool transcript into
// the single document the oracle sees each turn.
func oracleView(state json.RawMessage, transcript interface{}) (json.RawMessage, error) {
	if len(state) == 0 {
		state = json.RawMessage("{}")
	}
	view := map[string]interface{}{
		"state":        state,
		"tool_results": transcript,
	}
	data, err := json.Marshal(view)
	if err != nil {
		return nil, domain.Error{
			Type:    domain.ErrorTypeInternal,
			Message: "failed to build oracle view",
			Details: map[string]interface{}{
				"error": err.Error(),
			},
		}
	}
	return data, nil
}
