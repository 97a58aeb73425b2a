/*
Package registry manages type registration and index mapping for the
DynamoDB datastore.

The registry system enables:
  - Several entity types in a single DynamoDB table
  - Type resolution based on the injected EntityType attribute
  - Flexible key patterns through index maps

Index maps associate Go types with DynamoDB key patterns; macros in braces
are replaced with the entity's field values:

	registry.Register[ledger.Record]("ModerationRecord", map[string]string{
	    "PK":     "OBJECT#{ObjectKey}",
	    "SK":     "OBJECT#{ObjectKey}",
	    "GSI1PK": "STATUS#{Status}",
	    "GSI1SK": "{UpdatedAt}",
	})

The registry is thread-safe and should be populated during initialization,
typically in init() functions.
*/
package registry
