package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/fermata-io/fermata/internal/domain"
)

const (
	checkpointPrefix = "checkpoint:"
	executionPrefix  = "execution:"
)

// BadgerStore is the durable checkpoint store. Checkpoints live in a
// single slot per execution ID and may carry a TTL implementing approval
// expiration: an expired entry is indistinguishable from a deleted one.
type BadgerStore struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
	locks  *keyedMutex

	mu     sync.Mutex
	closed bool
}

func NewBadgerStore(dataDir string, ttl time.Duration, logger *slog.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(dataDir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, domain.NewStorageError("open", dataDir, err)
	}

	return &BadgerStore{
		db:     db,
		ttl:    ttl,
		logger: logger.With("component", "badger-store"),
		locks:  newKeyedMutex(),
	}, nil
}

func (s *BadgerStore) SaveCheckpoint(ctx context.Context, executionID string, cp *domain.Checkpoint) error {
	unlock := s.locks.Lock(executionID)
	defer unlock()

	data, err := cp.Encode()
	if err != nil {
		return err
	}

	key := checkpointPrefix + executionID
	err = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return domain.NewStorageError("save", key, err)
	}

	s.logger.Debug("checkpoint saved", "execution_id", executionID, "size", len(data))
	return nil
}

func (s *BadgerStore) LoadCheckpoint(ctx context.Context, executionID string) (*domain.Checkpoint, error) {
	unlock := s.locks.Lock(executionID)
	defer unlock()

	key := checkpointPrefix + executionID

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.NewNotFoundError("checkpoint", executionID)
		}
		return nil, domain.NewStorageError("load", key, err)
	}

	return domain.DecodeCheckpoint(data)
}

func (s *BadgerStore) DeleteCheckpoint(ctx context.Context, executionID string) error {
	unlock := s.locks.Lock(executionID)
	defer unlock()

	key := checkpointPrefix + executionID
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return domain.NewStorageError("delete", key, err)
	}

	s.logger.Debug("checkpoint deleted", "execution_id", executionID)
	return nil
}

func (s *BadgerStore) SaveExecution(ctx context.Context, exec *domain.Execution) error {
	data, err := encodeExecution(exec)
	if err != nil {
		return err
	}

	key := executionPrefix + exec.ID
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return domain.NewStorageError("save", key, err)
	}
	return nil
}

func (s *BadgerStore) LoadExecution(ctx context.Context, executionID string) (*domain.Execution, error) {
	key := executionPrefix + executionID

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.NewNotFoundError("execution", executionID)
		}
		return nil, domain.NewStorageError("load", key, err)
	}

	return decodeExecution(data)
}

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrAlreadyClosed
	}
	s.closed = true
	s.logger.Info("closing badger store")
	return s.db.Close()
}
