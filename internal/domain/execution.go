package domain

import (
	"time"

	json "github.com/goccy/go-json"
)

type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusSuspended ExecutionStatus = "suspended"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// Execution is the engine-owned record of one run through a graph. The ID
// is the sole correlation key across suspend/resume cycles.
type Execution struct {
	ID        string          `json:"id"`
	GraphName string          `json:"graph_name"`
	Status    ExecutionStatus `json:"status"`

	// State is the merged JSON document accumulated from step outputs.
	State json.RawMessage `json:"state,omitempty"`

	// Log is the ordered record of completed step runs, across all loop
	// iterations. Done tracks completion for the current pass only; loop
	// members are cleared from it at each new iteration.
	Log  []StepRecord    `json:"log,omitempty"`
	Done map[string]bool `json:"done,omitempty"`

	// Iterations counts finished iterations per loop group.
	Iterations map[string]int `json:"iterations,omitempty"`

	// FinishedLoops marks loop groups that have terminated, so steps
	// depending on a group become ready.
	FinishedLoops map[string]bool `json:"finished_loops,omitempty"`

	Suspension    *SuspensionRequest `json:"suspension,omitempty"`
	SuspendedStep string             `json:"suspended_step,omitempty"`

	// IterationLimitHit marks that at least one loop group terminated by
	// exhausting its ceiling rather than by an explicit stop signal.
	IterationLimitHit bool `json:"iteration_limit_hit,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	LastStep    string     `json:"last_step,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// StepRecord is one completed step run in the execution log.
type StepRecord struct {
	StepID      string          `json:"step_id"`
	Iteration   int             `json:"iteration"`
	Output      json.RawMessage `json:"output,omitempty"`
	StoppedLoop bool            `json:"stopped_loop,omitempty"`
	ExecutedAt  time.Time       `json:"executed_at"`
	Duration    time.Duration   `json:"duration"`
}

func NewExecution(id, graphName string) *Execution {
	return &Execution{
		ID:            id,
		GraphName:     graphName,
		Status:        ExecutionStatusRunning,
		Done:          make(map[string]bool),
		Iterations:    make(map[string]int),
		FinishedLoops: make(map[string]bool),
		StartedAt:     time.Now(),
	}
}

// ExecutionResult is what Start and Resume hand back to the caller. A
// pending result always carries the execution ID and the suspension hint
// so the caller can correlate the out-of-band decision.
type ExecutionResult struct {
	ExecutionID           string          `json:"execution_id"`
	Status                ExecutionStatus `json:"status"`
	State                 json.RawMessage `json:"state,omitempty"`
	Hint                  string          `json:"hint,omitempty"`
	SuspendedStep         string          `json:"suspended_step,omitempty"`
	IterationLimitReached bool            `json:"iteration_limit_reached,omitempty"`
	LastStep              string          `json:"last_step,omitempty"`
	Error                 string          `json:"error,omitempty"`
}

// Pending reports whether the execution is waiting on an external decision.
func (r *ExecutionResult) Pending() bool {
	return r.Status == ExecutionStatusSuspended
}
