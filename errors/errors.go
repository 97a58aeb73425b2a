/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity or stored object is not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when attempting to create an entity that already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional write fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrNoIndexMap is returned when no index map is found for a type
	ErrNoIndexMap = errors.New("no index map found for type")

	// ErrMalformedEnvelope is returned when a push delivery cannot be decoded
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrClassification is returned when the classifier call fails or times out
	ErrClassification = errors.New("classification failed")

	// ErrEnforcement is returned when a delete or metadata write fails
	ErrEnforcement = errors.New("enforcement failed")
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when an entity already exists
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// EnvelopeError describes why a push delivery was rejected before any
// domain processing happened.
type EnvelopeError struct {
	Reason string
	Err    error
}

func (e *EnvelopeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed envelope: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed envelope: %s", e.Reason)
}

func (e *EnvelopeError) Is(target error) bool {
	return target == ErrMalformedEnvelope
}

func (e *EnvelopeError) Unwrap() error {
	return e.Err
}

// StageError wraps a failure of an external call made during moderation.
// Stage is either ErrClassification or ErrEnforcement.
type StageError struct {
	Stage  error
	Object string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%v for %s: %v", e.Stage, e.Object, e.Err)
}

func (e *StageError) Is(target error) bool {
	return target == e.Stage
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewEnvelopeError creates a new EnvelopeError
func NewEnvelopeError(reason string, err error) error {
	return &EnvelopeError{Reason: reason, Err: err}
}

// NewClassificationError wraps a classifier failure for the given object
func NewClassificationError(object string, err error) error {
	return &StageError{Stage: ErrClassification, Object: object, Err: err}
}

// NewEnforcementError wraps a storage mutation failure for the given object
func NewEnforcementError(object string, err error) error {
	return &StageError{Stage: ErrEnforcement, Object: object, Err: err}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsMalformedEnvelope checks if an error came from envelope decoding
func IsMalformedEnvelope(err error) bool {
	return errors.Is(err, ErrMalformedEnvelope)
}

// IsClassification checks if an error is a classification failure
func IsClassification(err error) bool {
	return errors.Is(err, ErrClassification)
}

// IsEnforcement checks if an error is an enforcement failure
func IsEnforcement(err error) bool {
	return errors.Is(err, ErrEnforcement)
}
