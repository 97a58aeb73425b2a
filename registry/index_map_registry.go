/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"reflect"
	"sync"
)

// indexMapRegistry associates Go types with their DynamoDB index maps and
// the EntityType name injected into every stored item.
var (
	indexMapRegistry = make(map[reflect.Type]map[string]string)
	entityNames      = make(map[reflect.Type]string)
	mu               sync.RWMutex
)

// RegisterIndexMap sets the key macros (PK, SK, GSI1PK, GSI1SK) used to
// store values of type T.
func RegisterIndexMap[T any](idxMap map[string]string) {
	t := typeOf[T]()

	mu.Lock()
	defer mu.Unlock()
	indexMapRegistry[t] = idxMap
}

// GetIndexMap returns the key macros registered for T.
func GetIndexMap[T any]() (map[string]string, bool) {
	t := typeOf[T]()

	mu.RLock()
	defer mu.RUnlock()
	m, ok := indexMapRegistry[t]
	return m, ok
}

// RegisterEntityName sets the EntityType attribute value written for type T.
func RegisterEntityName[T any](name string) {
	t := typeOf[T]()

	mu.Lock()
	defer mu.Unlock()
	entityNames[t] = name
}

// EntityName returns the EntityType registered for T.
func EntityName[T any]() (string, bool) {
	t := typeOf[T]()

	mu.RLock()
	defer mu.RUnlock()
	name, ok := entityNames[t]
	return name, ok
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
