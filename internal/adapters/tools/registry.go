package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/fermata-io/fermata/internal/domain"
	"github.com/fermata-io/fermata/internal/ports"
)

// Registry is the closed set of invocable tools. Dispatch is by exact
// registered name; there is no reflective lookup.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]ports.ToolHandler
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[string]ports.ToolHandler),
		logger:   logger.With("component", "tool-registry"),
	}
}

func (r *Registry) Register(name string, handler ports.ToolHandler) error {
	if name == "" {
		return domain.NewValidationError("tool", "name cannot be empty")
	}
	if handler == nil {
		return domain.NewValidationError("tool", fmt.Sprintf("%s: handler cannot be nil", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return domain.Error{
			Type:    domain.ErrorTypeConflict,
			Message: fmt.Sprintf("tool already registered: %s", name),
			Details: map[string]interface{}{
				"tool": name,
			},
		}
	}
	r.handlers[name] = handler

	r.logger.Debug("tool registered", "tool", name)
	return nil
}

// Invoke dispatches a tool call. A handler failure comes back as a tagged
// error result so the caller (typically the oracle loop) can recover; the
// only invocation error is an unknown name.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (*domain.ToolResult, error) {
	r.mu.RLock()
	handler, ok := r.handlers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, domain.NewNotFoundError("tool", name)
	}

	data, err := handler(ctx, args)
	if err != nil {
		r.logger.Debug("tool invocation failed", "tool", name, "error", err.Error())
		return domain.ToolFailure(err.Error()), nil
	}
	return domain.ToolSuccess(data), nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
