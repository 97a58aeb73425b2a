/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/contentguard/registry"
	"github.com/suparena/contentguard/storagemodels"
)

func queryInput(params *storagemodels.QueryParams) *dynamodb.QueryInput {
	input := &dynamodb.QueryInput{
		TableName:                 &params.TableName,
		KeyConditionExpression:    &params.KeyConditionExpression,
		ExpressionAttributeValues: params.ExpressionAttributeValues,
		FilterExpression:          params.FilterExpression,
		IndexName:                 params.IndexName,
		Limit:                     params.Limit,
		ScanIndexForward:          params.ScanIndexForward,
		ExclusiveStartKey:         params.ExclusiveStartKey,
	}
	if len(params.ExpressionAttributeNames) > 0 {
		input.ExpressionAttributeNames = params.ExpressionAttributeNames
	}
	return input
}

// Query performs a single-page query against the DynamoDB table.
// It uses the injected EntityType attribute to select the correct unmarshal
// function from the type registry so that each item is unmarshaled to its
// proper type. Unregistered types come back as generic maps.
func (d *DynamodbDataStore[T]) Query(ctx context.Context, params *storagemodels.QueryParams) ([]interface{}, error) {
	out, err := d.client.Query(ctx, queryInput(params))
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	results := make([]interface{}, 0, len(out.Items))
	for _, item := range out.Items {
		obj, err := unmarshalTyped(item)
		if err != nil {
			return nil, err
		}
		results = append(results, obj)
	}

	return results, nil
}

func unmarshalTyped(item map[string]types.AttributeValue) (interface{}, error) {
	var entityType string
	if attr, ok := item[entityTypeAttr]; ok {
		if err := attributevalue.Unmarshal(attr, &entityType); err != nil {
			return nil, fmt.Errorf("failed to unmarshal EntityType: %w", err)
		}
	}

	unmarshalFn, err := registry.GetUnmarshalFunc(entityType)
	if err != nil {
		var generic map[string]interface{}
		if err := attributevalue.UnmarshalMap(item, &generic); err != nil {
			return nil, fmt.Errorf("failed to unmarshal generic item: %w", err)
		}
		return generic, nil
	}

	obj, err := unmarshalFn(item)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal item for EntityType %q: %w", entityType, err)
	}
	return obj, nil
}
