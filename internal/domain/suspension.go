package domain

import (
	"crypto/rand"
	"time"

	json "github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
)

// SuspensionRequest asks the engine to pause the execution pending an
// external decision. Payload is whatever the step needs back to resume
// correctly; the engine treats it as opaque.
type SuspensionRequest struct {
	Token       string          `json:"token"`
	Hint        string          `json:"hint"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	RequestedAt time.Time       `json:"requested_at"`
}

// NewSuspensionRequest builds a request with a fresh ULID token. Issuing
// the request is synchronous; it never blocks waiting for the approver.
func NewSuspensionRequest(hint string, payload interface{}) (*SuspensionRequest, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, Error{
				Type:    ErrorTypeInternal,
				Message: "failed to serialize suspension payload",
				Details: map[string]interface{}{
					"hint":  hint,
					"error": err.Error(),
				},
			}
		}
		raw = data
	}

	now := time.Now()
	return &SuspensionRequest{
		Token:       ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Hint:        hint,
		Payload:     raw,
		RequestedAt: now,
	}, nil
}

// Decision is the external approver's answer to exactly one
// SuspensionRequest.
type Decision struct {
	Confirmed bool                   `json:"confirmed"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	DecidedAt time.Time              `json:"decided_at,omitempty"`
}
