/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UnmarshalFunc defines a function that takes a raw DynamoDB item and returns the unmarshaled object.
type UnmarshalFunc func(item map[string]types.AttributeValue) (interface{}, error)

var (
	typeRegistry = make(map[string]UnmarshalFunc)
	typeMu       sync.RWMutex
)

// RegisterType registers an unmarshal function for a given EntityType name.
// If a type is already registered under the name, it panics to prevent accidental overrides.
func RegisterType(name string, fn UnmarshalFunc) {
	typeMu.Lock()
	defer typeMu.Unlock()

	if _, exists := typeRegistry[name]; exists {
		panic(fmt.Sprintf("type registry: type %q already registered", name))
	}
	typeRegistry[name] = fn
}

// GetUnmarshalFunc returns the registered unmarshal function for the given EntityType name.
func GetUnmarshalFunc(name string) (UnmarshalFunc, error) {
	typeMu.RLock()
	defer typeMu.RUnlock()

	fn, ok := typeRegistry[name]
	if !ok {
		return nil, fmt.Errorf("type registry: no type registered for %q", name)
	}
	return fn, nil
}

// Register wires type T in one call: its EntityType name, an unmarshal
// function for polymorphic queries, and its index map.
func Register[T any](name string, idxMap map[string]string) {
	RegisterType(name, func(item map[string]types.AttributeValue) (interface{}, error) {
		v := new(T)
		if err := attributevalue.UnmarshalMap(item, v); err != nil {
			return nil, err
		}
		return *v, nil
	})
	RegisterEntityName[T](name)
	RegisterIndexMap[T](idxMap)
}
