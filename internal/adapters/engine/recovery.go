package engine

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/fermata-io/fermata/internal/domain"
)

// callHandler invokes a step handler with panic recovery. A panicking
// handler fails the execution like any other step error instead of
// tearing down the process.
func callHandler(ctx context.Context, step *domain.Step, sc *domain.StepContext) (result *domain.StepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.Error{
				Type:    domain.ErrorTypeInternal,
				Message: fmt.Sprintf("step %s panicked: %v", step.ID, r),
				Details: map[string]interface{}{
					"step":        step.ID,
					"panic_value": fmt.Sprintf("%v", r),
					"stack_trace": string(debug.Stack()),
				},
			}
		}
	}()

	result, err = step.Handler(ctx, sc)
	if err == nil && result == nil {
		err = domain.Error{
			Type:    domain.ErrorTypeInternal,
			Message: fmt.Sprintf("step %s returned no result", step.ID),
			Details: map[string]interface{}{
				"step": step.ID,
			},
		}
	}
	return result, err
}
