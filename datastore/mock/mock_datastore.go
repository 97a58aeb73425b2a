/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of the DataStore interface for testing
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/suparena/contentguard/errors"
	"github.com/suparena/contentguard/storagemodels"
)

// DataStore is a mock implementation of datastore.DataStore[T] for testing.
// Conditions are evaluated against the JSON form of the stored entity.
type DataStore[T any] struct {
	mu          sync.RWMutex
	data        map[string]T
	queryFunc   func(ctx context.Context, params *storagemodels.QueryParams) ([]interface{}, error)
	streamFunc  func(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T]
	getKeyFunc  func(entity T) string
	getError    error
	putError    error
	updateError error
}

// New creates a new mock DataStore
func New[T any]() *DataStore[T] {
	return &DataStore[T]{
		data: make(map[string]T),
	}
}

// WithGetKeyFunc sets a custom function to extract keys from entities
func (m *DataStore[T]) WithGetKeyFunc(f func(T) string) *DataStore[T] {
	m.getKeyFunc = f
	return m
}

// WithQueryFunc sets a custom query function for testing
func (m *DataStore[T]) WithQueryFunc(f func(ctx context.Context, params *storagemodels.QueryParams) ([]interface{}, error)) *DataStore[T] {
	m.queryFunc = f
	return m
}

// WithStreamFunc sets a custom stream function for testing
func (m *DataStore[T]) WithStreamFunc(f func(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T]) *DataStore[T] {
	m.streamFunc = f
	return m
}

// WithGetError makes GetOne operations return an error
func (m *DataStore[T]) WithGetError(err error) *DataStore[T] {
	m.getError = err
	return m
}

// WithPutError makes PutWithCondition return err
func (m *DataStore[T]) WithPutError(err error) *DataStore[T] {
	m.putError = err
	return m
}

// WithUpdateError makes UpdateWithCondition operations return an error
func (m *DataStore[T]) WithUpdateError(err error) *DataStore[T] {
	m.updateError = err
	return m
}

// GetOne retrieves an entity by key
func (m *DataStore[T]) GetOne(ctx context.Context, key string) (*T, error) {
	if m.getError != nil {
		return nil, m.getError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if entity, exists := m.data[key]; exists {
		return &entity, nil
	}

	var zero T
	return nil, errors.NewNotFoundError(fmt.Sprintf("%T", zero), key)
}

// PutWithCondition stores an entity if cond holds for the current value; a
// nil cond always stores
func (m *DataStore[T]) PutWithCondition(ctx context.Context, entity T, cond *storagemodels.Condition) error {
	if m.putError != nil {
		return m.putError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.extractKey(entity)
	if key == "" {
		return errors.NewValidationError("key", "unable to extract key from entity")
	}

	existing, exists := m.data[key]
	if !m.holds(cond, existing, exists) {
		return errors.NewConditionFailedError("put", fmt.Sprintf("%+v", cond))
	}

	m.data[key] = entity
	return nil
}

// UpdateWithCondition applies updates to the stored entity if cond holds.
// keyInput is either a string key or an entity value passed to the key func.
func (m *DataStore[T]) UpdateWithCondition(ctx context.Context, keyInput any, updates map[string]interface{}, cond *storagemodels.Condition) error {
	if m.updateError != nil {
		return m.updateError
	}

	var key string
	switch k := keyInput.(type) {
	case string:
		key = k
	case T:
		key = m.extractKey(k)
	default:
		return errors.NewValidationError("keyInput", "must be a string or entity for mock")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.data[key]
	if !m.holds(cond, existing, exists) {
		return errors.NewConditionFailedError("update", fmt.Sprintf("%+v", cond))
	}
	if !exists {
		// UpdateItem upserts; an unconditional update of a missing key creates it
		var zero T
		existing = zero
	}

	fields, err := toFields(existing)
	if err != nil {
		return err
	}
	for k, v := range updates {
		fields[k] = v
	}

	updated, err := fromFields[T](fields)
	if err != nil {
		return err
	}
	m.data[key] = updated
	return nil
}

// holds evaluates cond the way DynamoDB would against the current item.
func (m *DataStore[T]) holds(cond *storagemodels.Condition, existing T, exists bool) bool {
	if cond.IsZero() {
		return true
	}
	if cond.NotExists && exists {
		return false
	}
	if len(cond.Equals) == 0 {
		return true
	}
	if !exists {
		return false
	}

	fields, err := toFields(existing)
	if err != nil {
		return false
	}
	for attr, want := range cond.Equals {
		got, ok := fields[attr]
		if !ok || !sameValue(got, want) {
			return false
		}
	}
	return true
}

// sameValue compares a JSON-decoded field with a Go value.
func sameValue(got, want interface{}) bool {
	raw, err := json.Marshal(want)
	if err != nil {
		return false
	}
	var normalized interface{}
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return false
	}
	return reflect.DeepEqual(got, normalized)
}

func toFields(entity any) (map[string]interface{}, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("mock: marshal entity: %w", err)
	}
	fields := make(map[string]interface{})
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("mock: entity is not an object: %w", err)
	}
	return fields, nil
}

func fromFields[T any](fields map[string]interface{}) (T, error) {
	var out T
	raw, err := json.Marshal(fields)
	if err != nil {
		return out, fmt.Errorf("mock: marshal fields: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("mock: apply updates: %w", err)
	}
	return out, nil
}

// Query executes a query
func (m *DataStore[T]) Query(ctx context.Context, params *storagemodels.QueryParams) ([]interface{}, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, params)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]interface{}, 0, len(m.data))
	for _, v := range m.data {
		results = append(results, v)
	}

	return results, nil
}

// Stream returns a channel of results. Without a stream func every stored
// entity is streamed, ignoring params.
func (m *DataStore[T]) Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	if m.streamFunc != nil {
		return m.streamFunc(ctx, params, opts...)
	}

	m.mu.RLock()
	snapshot := make([]T, 0, len(m.data))
	for _, v := range m.data {
		snapshot = append(snapshot, v)
	}
	m.mu.RUnlock()

	resultChan := make(chan storagemodels.StreamResult[T], 10)

	go func() {
		defer close(resultChan)

		for i, v := range snapshot {
			select {
			case <-ctx.Done():
				return
			case resultChan <- storagemodels.StreamResult[T]{
				Item: v,
				Meta: storagemodels.StreamMeta{
					Index:      int64(i),
					PageNumber: 1,
				},
			}:
			}
		}
	}()

	return resultChan
}

// Helper methods for testing

// SetData directly sets the internal data map (for testing)
func (m *DataStore[T]) SetData(data map[string]T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}

// GetData returns a copy of the internal data map (for testing)
func (m *DataStore[T]) GetData() map[string]T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]T, len(m.data))
	for k, v := range m.data {
		result[k] = v
	}
	return result
}

// Count returns the number of stored entities
func (m *DataStore[T]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// extractKey extracts a key from an entity
func (m *DataStore[T]) extractKey(entity T) string {
	if m.getKeyFunc != nil {
		return m.getKeyFunc(entity)
	}
	return fmt.Sprintf("key_%v", entity)
}
