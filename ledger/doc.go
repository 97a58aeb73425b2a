/*
Package ledger keeps an audit record per moderated object in DynamoDB and
uses it as a compare-and-swap claim, so concurrent deliveries for the same
object classify it once.

Records live in a single table through the datastore/ddb store:

	PK = SK = OBJECT#{bucket/name}
	GSI1PK  = STATUS#{Status}
	GSI1SK  = {UpdatedAt}

A delivery calls Claim before classifying and Finish afterwards. Failures
lists ERROR records by time through GSI1 for the reconciler, and Recent
reads the newest records in a status for operators.

The ledger is optional. When it is unavailable moderation still runs and
relies on the moderated metadata tag alone.
*/
package ledger
