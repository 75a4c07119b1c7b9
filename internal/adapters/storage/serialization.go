package storage

import (
	json "github.com/goccy/go-json"

	"github.com/fermata-io/fermata/internal/domain"
)

func encodeExecution(exec *domain.Execution) ([]byte, error) {
	data, err := json.Marshal(exec)
	if err != nil {
		return nil, domain.Error{
			Type:    domain.ErrorTypeInternal,
			Message: "failed to serialize execution record",
			Details: map[string]interface{}{
				"execution_id": exec.ID,
				"error":        err.Error(),
			},
		}
	}
	return data, nil
}

func decodeExecution(data []byte) (*domain.Execution, error) {
	var exec domain.Execution
	if err := json.Unmarshal(data, &exec); err != nil {
		return nil, domain.Error{
			Type:    domain.ErrorTypeInternal,
			Message: "failed to decode execution record",
			Details: map[string]interface{}{
				"error": err.Error(),
			},
		}
	}
	return &exec, nil
}
