package domain

import (
	"time"

	json "github.com/goccy/go-json"
)

// Checkpoint is the serialized snapshot of a suspended execution: the
// cursor (done set, loop iterations), the accumulated outputs, and the
// suspension awaiting a decision. One live checkpoint per execution ID,
// overwritten on each suspension.
type Checkpoint struct {
	ExecutionID string    `json:"execution_id"`
	Execution   Execution `json:"execution"`
	SavedAt     time.Time `json:"saved_at"`
}

func NewCheckpoint(exec *Execution) *Checkpoint {
	return &Checkpoint{
		ExecutionID: exec.ID,
		Execution:   *exec,
		SavedAt:     time.Now(),
	}
}

func (c *Checkpoint) Encode() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, Error{
			Type:    ErrorTypeInternal,
			Message: "failed to serialize checkpoint",
			Details: map[string]interface{}{
				"execution_id": c.ExecutionID,
				"error":        err.Error(),
			},
		}
	}
	return data, nil
}

func DecodeCheckpoint(data []byte) (*Checkpoint, error) {
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, Error{
			Type:    ErrorTypeInternal,
			Message: "failed to decode checkpoint",
			Details: map[string]interface{}{
				"error": err.Error(),
			},
		}
	}
	return &cp, nil
}
