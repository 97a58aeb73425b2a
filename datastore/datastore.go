/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/contentguard/storagemodels"
)

type DataStore[T any] interface {
	GetOne(ctx context.Context, key string) (*T, error)

	PutWithCondition(ctx context.Context, entity T, cond *storagemodels.Condition) error

	UpdateWithCondition(ctx context.Context, keyInput any, updates map[string]interface{}, cond *storagemodels.Condition) error

	Query(ctx context.Context, params *storagemodels.QueryParams) ([]interface{}, error)

	Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T]
}
