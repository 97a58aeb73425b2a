/*
Package datastore defines the persistence interface used by the moderation
ledger.

DataStore[T] provides the reads, conditional writes and queries the ledger
needs for any entity type T:

	type DataStore[T any] interface {
	    GetOne(ctx context.Context, key string) (*T, error)
	    PutWithCondition(ctx context.Context, entity T, cond *storagemodels.Condition) error
	    UpdateWithCondition(ctx context.Context, keyInput any, updates map[string]interface{}, cond *storagemodels.Condition) error
	    Query(ctx context.Context, params *storagemodels.QueryParams) ([]interface{}, error)
	    Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T]
	}

GetOne returns a NotFoundError from the errors package when the key is
unused. Conditional writes that fail their condition return a
ConditionFailedError.

Implementations:
  - ddb: DynamoDB implementation with support for single-table design
  - mock: In-memory implementation for testing
*/
package datastore
