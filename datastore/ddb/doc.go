/*
Package ddb provides a DynamoDB implementation of the DataStore interface.

The DynamodbDataStore supports:
  - Single-table design patterns
  - Macro-based key expansion (e.g., "OBJECT#{ObjectKey}")
  - GSI and time-range queries
  - Paginated streaming with retry logic
  - Conditional puts and updates for claims and optimistic locking
  - Automatic EntityType injection for polymorphic queries

Macro Expansion:
Keys can use macros that are replaced with entity field values:

	indexMap := map[string]string{
	    "PK":     "OBJECT#{ObjectKey}",
	    "SK":     "OBJECT#{ObjectKey}",
	    "GSI1PK": "STATUS#{Status}",
	    "GSI1SK": "{UpdatedAt}",
	}

When UpdateWithCondition changes Status or UpdatedAt, GSI1PK and GSI1SK are
rewritten from the new values.

Time-range streaming:

	results := store.QueryByTimeRange("STATUS#ERROR").
	    InLast(24 * time.Hour).
	    Stream(ctx, storagemodels.WithPageSize(25))
*/
package ddb
