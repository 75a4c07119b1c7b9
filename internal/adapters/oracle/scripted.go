package oracle

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/fermata-io/fermata/internal/domain"
)

// Scripted replays a fixed sequence of oracle decisions. It stands in for
// the external language-model collaborator in tests and examples.
type Scripted struct {
	mu    sync.Mutex
	turns []domain.OracleDecision
	next  int
}

func NewScripted(turns ...domain.OracleDecision) *Scripted {
	return &Scripted{turns: turns}
}

func (s *Scripted) Decide(ctx context.Context, state json.RawMessage, instructions string) (*domain.OracleDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.turns) {
		return nil, domain.Error{
			Type:    domain.ErrorTypeInternal,
			Message: "scripted oracle exhausted",
			Details: map[string]interface{}{
				"turns": len(s.turns),
			},
		}
	}

	d := s.turns[s.next]
	s.next++
	return &d, nil
}

// AnswerTurn scripts a terminal answer.
func AnswerTurn(answer interface{}) domain.OracleDecision {
	data, _ := json.Marshal(answer)
	return domain.OracleDecision{Answer: data}
}

// ToolTurn scripts a named tool call.
func ToolTurn(name string, args interface{}) domain.OracleDecision {
	var raw json.RawMessage
	if args != nil {
		raw, _ = json.Marshal(args)
	}
	return domain.OracleDecision{ToolCall: &domain.ToolCall{Name: name, Args: raw}}
}
