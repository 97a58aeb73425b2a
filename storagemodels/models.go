/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// QueryParams mirrors the DynamoDB Query input used by Query and Stream.
// IndexName selects a secondary index; ScanIndexForward false returns
// the highest sort keys first.
type QueryParams struct {
	TableName                 string
	KeyConditionExpression    string
	FilterExpression          *string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues map[string]types.AttributeValue
	IndexName                 *string
	Limit                     *int32
	ExclusiveStartKey         map[string]types.AttributeValue
	ScanIndexForward          *bool
}

// Condition guards a conditional write. The zero value is unconditional.
//
// NotExists requires that no item with the same key exists yet.
// Equals requires every named attribute of the stored item to hold the given
// value; the checks are ANDed.
type Condition struct {
	NotExists bool
	Equals    map[string]interface{}
}

// IfNotExists returns a condition satisfied only when the key is unused.
func IfNotExists() *Condition {
	return &Condition{NotExists: true}
}

// IfEquals returns a condition satisfied when every attribute matches.
func IfEquals(attrs map[string]interface{}) *Condition {
	return &Condition{Equals: attrs}
}

// IsZero reports whether the condition imposes no constraint.
func (c *Condition) IsZero() bool {
	return c == nil || (!c.NotExists && len(c.Equals) == 0)
}
