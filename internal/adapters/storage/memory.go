package storage

import (
	"context"
	"sync"
	"time"

	"github.com/fermata-io/fermata/internal/domain"
)

// MemoryStore is the map-backed checkpoint store for tests and
// non-durable embeddings. Semantics match BadgerStore, including TTL
// expiry checked lazily on load.
type MemoryStore struct {
	mu          sync.Mutex
	ttl         time.Duration
	checkpoints map[string]memoryEntry
	executions  map[string][]byte
	closed      bool
}

type memoryEntry struct {
	data     []byte
	expireAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:         ttl,
		checkpoints: make(map[string]memoryEntry),
		executions:  make(map[string][]byte),
	}
}

func (s *MemoryStore) SaveCheckpoint(ctx context.Context, executionID string, cp *domain.Checkpoint) error {
	data, err := cp.Encode()
	if err != nil {
		return err
	}

	var expireAt time.Time
	if s.ttl > 0 {
		expireAt = time.Now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[executionID] = memoryEntry{data: data, expireAt: expireAt}
	return nil
}

func (s *MemoryStore) LoadCheckpoint(ctx context.Context, executionID string) (*domain.Checkpoint, error) {
	s.mu.Lock()
	e, ok := s.checkpoints[executionID]
	if ok && !e.expireAt.IsZero() && time.Now().After(e.expireAt) {
		delete(s.checkpoints, executionID)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, domain.NewNotFoundError("checkpoint", executionID)
	}
	return domain.DecodeCheckpoint(e.data)
}

func (s *MemoryStore) DeleteCheckpoint(ctx context.Context, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, executionID)
	return nil
}

func (s *MemoryStore) SaveExecution(ctx context.Context, exec *domain.Execution) error {
	data, err := encodeExecution(exec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[exec.ID] = data
	return nil
}

func (s *MemoryStore) LoadExecution(ctx context.Context, executionID string) (*domain.Execution, error) {
	s.mu.Lock()
	data, ok := s.executions[executionID]
	s.mu.Unlock()

	if !ok {
		return nil, domain.NewNotFoundError("execution", executionID)
	}
	return decodeExecution(data)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrAlreadyClosed
	}
	s.closed = true
	return nil
}
