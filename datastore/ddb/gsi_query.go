/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/contentguard/storagemodels"
)

// Secondary index layout shared by every registered entity. The key
// attributes are filled from the GSI1PK/GSI1SK entries of the index map.
const (
	gsi1Name = "GSI1"
	gsi1PK   = "GSI1PK"
	gsi1SK   = "GSI1SK"
)

// GSIQueryBuilder builds queries on GSI1. Key values are given already
// expanded, e.g. "STATUS#ERROR".
type GSIQueryBuilder[T any] struct {
	store      *DynamodbDataStore[T]
	pkValue    string
	skOp       string
	skValues   []string
	limit      *int32
	descending bool
}

// QueryGSI starts a query on GSI1.
func (d *DynamodbDataStore[T]) QueryGSI() *GSIQueryBuilder[T] {
	return &GSIQueryBuilder[T]{store: d}
}

// WithPartitionKey sets the GSI1PK value to match.
func (q *GSIQueryBuilder[T]) WithPartitionKey(value string) *GSIQueryBuilder[T] {
	q.pkValue = value
	return q
}

// WithSortKeyGreaterThan keeps sort keys strictly after value.
func (q *GSIQueryBuilder[T]) WithSortKeyGreaterThan(value string) *GSIQueryBuilder[T] {
	q.skOp, q.skValues = ">", []string{value}
	return q
}

// WithSortKeyLessThan keeps sort keys strictly before value.
func (q *GSIQueryBuilder[T]) WithSortKeyLessThan(value string) *GSIQueryBuilder[T] {
	q.skOp, q.skValues = "<", []string{value}
	return q
}

// WithSortKeyBetween keeps sort keys in [start, end].
func (q *GSIQueryBuilder[T]) WithSortKeyBetween(start, end string) *GSIQueryBuilder[T] {
	q.skOp, q.skValues = "BETWEEN", []string{start, end}
	return q
}

// WithLimit sets the page size.
func (q *GSIQueryBuilder[T]) WithLimit(limit int32) *GSIQueryBuilder[T] {
	q.limit = aws.Int32(limit)
	return q
}

// Descending returns the highest sort keys first.
func (q *GSIQueryBuilder[T]) Descending() *GSIQueryBuilder[T] {
	q.descending = true
	return q
}

// Build returns the query parameters.
func (q *GSIQueryBuilder[T]) Build() (*storagemodels.QueryParams, error) {
	if q.pkValue == "" {
		return nil, fmt.Errorf("GSI partition key value is required")
	}

	params := &storagemodels.QueryParams{
		TableName:                q.store.tableName,
		IndexName:                aws.String(gsi1Name),
		Limit:                    q.limit,
		KeyConditionExpression:   "#pk = :pk",
		ExpressionAttributeNames: map[string]string{"#pk": gsi1PK},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: q.pkValue},
		},
	}
	if q.descending {
		params.ScanIndexForward = aws.Bool(false)
	}

	switch q.skOp {
	case "":
		return params, nil
	case "BETWEEN":
		params.KeyConditionExpression += " AND #sk BETWEEN :sk AND :sk2"
		params.ExpressionAttributeValues[":sk2"] = &types.AttributeValueMemberS{Value: q.skValues[1]}
	default:
		params.KeyConditionExpression += " AND #sk " + q.skOp + " :sk"
	}
	params.ExpressionAttributeNames["#sk"] = gsi1SK
	params.ExpressionAttributeValues[":sk"] = &types.AttributeValueMemberS{Value: q.skValues[0]}
	return params, nil
}

// Stream runs the query through the store's paginated stream.
func (q *GSIQueryBuilder[T]) Stream(ctx context.Context, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	params, err := q.Build()
	if err != nil {
		ch := make(chan storagemodels.StreamResult[T], 1)
		ch <- storagemodels.StreamResult[T]{Error: fmt.Errorf("failed to build query: %w", err)}
		close(ch)
		return ch
	}
	return q.store.Stream(ctx, params, opts...)
}
