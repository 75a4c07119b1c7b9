package domain

import (
	"errors"
	"fmt"
)

type ErrorType int

const (
	ErrorTypeNotFound ErrorType = iota
	ErrorTypeValidation
	ErrorTypeConflict
	ErrorTypeInternal
	ErrorTypeSuspensionWithoutDecision
	ErrorTypeToolError
)

// Error is the structured error carried across engine boundaries. Details
// holds correlation data (execution id, step id) for callers and logs.
type Error struct {
	Type    ErrorType
	Message string
	Details map[string]interface{}
}

func (e Error) Error() string {
	return e.Message
}

func (e Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Type == ErrorTypeNotFound
	case ErrSuspensionWithoutDecision:
		return e.Type == ErrorTypeSuspensionWithoutDecision
	case ErrInvalidGraph:
		return e.Type == ErrorTypeValidation
	}
	return false
}

var (
	ErrNotFound                  = errors.New("not found")
	ErrSuspensionWithoutDecision = errors.New("resume requires a decision")
	ErrInvalidGraph              = errors.New("invalid graph")
	ErrAlreadyClosed             = errors.New("already closed")
)

func NewNotFoundError(resource, id string) Error {
	return Error{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewValidationError(field, msg string) Error {
	return Error{
		Type:    ErrorTypeValidation,
		Message: fmt.Sprintf("%s: %s", field, msg),
		Details: map[string]interface{}{
			"field": field,
		},
	}
}

type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func NewStorageError(op, key string, err error) *StorageError {
	return &StorageError{Op: op, Key: key, Err: err}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsSuspensionWithoutDecision(err error) bool {
	return errors.Is(err, ErrSuspensionWithoutDecision)
}

func IsValidation(err error) bool {
	var domainErr Error
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeValidation
	}
	return false
}
