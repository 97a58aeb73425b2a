/*
Package storagemodels defines the data structures shared by the datastore
implementations.

QueryParams describes a DynamoDB query (also used for streaming):

	params := &QueryParams{
	    TableName:              "contentguard-ledger",
	    KeyConditionExpression: "GSI1PK = :pk AND GSI1SK > :sk",
	    IndexName:              aws.String("GSI1"),
	}

Condition guards conditional writes without exposing DynamoDB expression
syntax to callers:

	store.PutWithCondition(ctx, record, storagemodels.IfNotExists())
	store.UpdateWithCondition(ctx, key, updates, storagemodels.IfEquals(map[string]interface{}{
	    "RunID": runID,
	}))

StreamResult and StreamOption configure and carry streamed query results.
*/
package storagemodels
