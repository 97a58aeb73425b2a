/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	cgerrors "github.com/suparena/contentguard/errors"
	"github.com/suparena/contentguard/registry"
	"github.com/suparena/contentguard/storagemodels"
)

// API is the subset of the DynamoDB client used by the datastore.
type API interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
}

// DynamodbDataStore implements datastore.DataStore[T] by using AWS DynamoDB as the underlying data store.
type DynamodbDataStore[T any] struct {
	client    API
	tableName string
}

const entityTypeAttr = "EntityType"

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// NewDynamoDBClient creates a DynamoDB client from a shared AWS configuration.
func NewDynamoDBClient(cfg aws.Config, optFns ...func(*sdk.Options)) *sdk.Client {
	return sdk.NewFromConfig(cfg, optFns...)
}

// NewDynamodbDataStore constructs a new DynamodbDataStore for type T.
func NewDynamodbDataStore[T any](client API, tableName string) *DynamodbDataStore[T] {
	return &DynamodbDataStore[T]{
		client:    client,
		tableName: tableName,
	}
}

// expandTemplate replaces each {Field} macro using lookup. ok is false when
// lookup could not resolve one of the macros.
func expandTemplate(template string, lookup func(string) (string, bool)) (string, bool) {
	ok := true
	expanded := macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
		v, found := lookup(strings.Trim(macro, "{}"))
		if !found {
			ok = false
		}
		return v
	})
	return expanded, ok
}

// attrString converts a scalar attribute value into its key representation.
func attrString(val types.AttributeValue) (string, bool) {
	switch tv := val.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value, true
	case *types.AttributeValueMemberN:
		return tv.Value, true
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprintf("%v", tv.Value), true
	default:
		// NULL, binary and set members have no key representation
		return "", false
	}
}

func expandMacros(indexMap map[string]string, keysInput any) (map[string]string, error) {
	av, err := attributevalue.MarshalMap(keysInput)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keysInput: %w", err)
	}

	res := make(map[string]string, len(indexMap))
	for fieldName, template := range indexMap {
		res[fieldName], _ = expandTemplate(template, func(key string) (string, bool) {
			val, ok := av[key]
			if !ok {
				return "", false
			}
			return attrString(val)
		})
	}
	return res, nil
}

// expandStringKey replaces every macro in the index map with the provided key.
func expandStringKey(indexMap map[string]string, key string) map[string]string {
	expanded := make(map[string]string, len(indexMap))
	for field, template := range indexMap {
		expanded[field] = macroPattern.ReplaceAllLiteralString(template, key)
	}
	return expanded
}

func (d *DynamodbDataStore[T]) indexMap() (map[string]string, error) {
	indexMap, ok := registry.GetIndexMap[T]()
	if !ok {
		return nil, fmt.Errorf("%w: %T", cgerrors.ErrNoIndexMap, *new(T))
	}
	return indexMap, nil
}

// GetOne retrieves a single item from DynamoDB using a string key.
// A missing item is reported as a NotFoundError.
func (d *DynamodbDataStore[T]) GetOne(ctx context.Context, key string) (*T, error) {
	indexMap, err := d.indexMap()
	if err != nil {
		return nil, err
	}

	keyMap, err := buildKeyFromExpanded(expandStringKey(indexMap, key))
	if err != nil {
		return nil, fmt.Errorf("failed to build key: %w", err)
	}

	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      &d.tableName,
		Key:            keyMap,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return nil, cgerrors.NewNotFoundError(fmt.Sprintf("%T", *new(T)), key)
	}

	result := new(T)
	if err := attributevalue.UnmarshalMap(out.Item, result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return result, nil
}

// PutWithCondition stores the entity only if cond holds for the current
// item; a nil cond writes unconditionally. Partition, sort and GSI keys are
// filled from the registered index map.
func (d *DynamodbDataStore[T]) PutWithCondition(ctx context.Context, entity T, cond *storagemodels.Condition) error {
	item, err := d.buildItem(entity)
	if err != nil {
		return err
	}

	input := &sdk.PutItemInput{
		TableName: &d.tableName,
		Item:      item,
	}

	var condExpr string
	if !cond.IsZero() {
		names := make(map[string]string)
		values := make(map[string]types.AttributeValue)
		condExpr, err = buildConditionExpression(cond, names, values)
		if err != nil {
			return err
		}
		input.ConditionExpression = &condExpr
		if len(names) > 0 {
			input.ExpressionAttributeNames = names
		}
		if len(values) > 0 {
			input.ExpressionAttributeValues = values
		}
	}

	if _, err = d.client.PutItem(ctx, input); err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return cgerrors.NewConditionFailedError("put", condExpr)
		}
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

func (d *DynamodbDataStore[T]) buildItem(entity T) (map[string]types.AttributeValue, error) {
	indexMap, err := d.indexMap()
	if err != nil {
		return nil, err
	}

	av, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}

	expanded, err := expandMacros(indexMap, entity)
	if err != nil {
		return nil, err
	}
	for k, v := range expanded {
		av[k] = &types.AttributeValueMemberS{Value: v}
	}

	if name, ok := registry.EntityName[T](); ok {
		av[entityTypeAttr] = &types.AttributeValueMemberS{Value: name}
	}
	return av, nil
}

// getKey builds the primary key from either a string key or a value whose
// fields satisfy the PK/SK macros.
func (d *DynamodbDataStore[T]) getKey(keyInput any, indexMap map[string]string) (map[string]types.AttributeValue, error) {
	if s, ok := keyInput.(string); ok {
		return buildKeyFromExpanded(expandStringKey(indexMap, s))
	}

	expanded, err := expandMacros(indexMap, keyInput)
	if err != nil {
		return nil, err
	}
	return buildKeyFromExpanded(expanded)
}

// derivedIndexUpdates returns the GSI attributes whose templates can be fully
// expanded from the updated fields, so index keys follow the data they mirror.
func derivedIndexUpdates(indexMap map[string]string, updates map[string]interface{}) map[string]interface{} {
	derived := make(map[string]interface{})
	for field, template := range indexMap {
		if field == "PK" || field == "SK" || !macroPattern.MatchString(template) {
			continue
		}
		expanded, ok := expandTemplate(template, func(key string) (string, bool) {
			v, found := updates[key]
			if !found {
				return "", false
			}
			return fmt.Sprintf("%v", v), true
		})
		if ok {
			derived[field] = expanded
		}
	}
	return derived
}

// buildUpdateExpression transforms a map of field->value into:
//   - an "update expression" (e.g., "SET #f0 = :v0, #f1 = :v1")
//   - entries in the expression attribute names and values maps
//
// Fields are emitted in sorted order so the expression is deterministic.
func buildUpdateExpression(updates map[string]interface{}, names map[string]string, values map[string]types.AttributeValue) (string, error) {
	if len(updates) == 0 {
		return "", errors.New("no updates provided")
	}

	fields := make([]string, 0, len(updates))
	for field := range updates {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	setClauses := make([]string, 0, len(fields))
	for i, field := range fields {
		placeholderName := fmt.Sprintf("#f%d", i)
		placeholderValue := fmt.Sprintf(":v%d", i)

		av, err := attributevalue.Marshal(updates[field])
		if err != nil {
			return "", fmt.Errorf("unhandled update value type for field '%s': %w", field, err)
		}

		setClauses = append(setClauses, fmt.Sprintf("%s = %s", placeholderName, placeholderValue))
		names[placeholderName] = field
		values[placeholderValue] = av
	}

	return "SET " + strings.Join(setClauses, ", "), nil
}

// buildConditionExpression renders cond into a DynamoDB condition expression,
// adding its placeholders to names and values.
func buildConditionExpression(cond *storagemodels.Condition, names map[string]string, values map[string]types.AttributeValue) (string, error) {
	var clauses []string
	if cond.NotExists {
		clauses = append(clauses, "attribute_not_exists(PK)")
	}

	fields := make([]string, 0, len(cond.Equals))
	for field := range cond.Equals {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for i, field := range fields {
		placeholderName := fmt.Sprintf("#c%d", i)
		placeholderValue := fmt.Sprintf(":c%d", i)

		av, err := attributevalue.Marshal(cond.Equals[field])
		if err != nil {
			return "", fmt.Errorf("unhandled condition value type for field '%s': %w", field, err)
		}

		clauses = append(clauses, fmt.Sprintf("%s = %s", placeholderName, placeholderValue))
		names[placeholderName] = field
		values[placeholderValue] = av
	}

	return strings.Join(clauses, " AND "), nil
}

// UpdateWithCondition applies updates to the item identified by keyInput if
// cond holds. GSI key attributes derived from updated fields are rewritten too.
func (d *DynamodbDataStore[T]) UpdateWithCondition(ctx context.Context, keyInput any, updates map[string]interface{}, cond *storagemodels.Condition) error {
	indexMap, err := d.indexMap()
	if err != nil {
		return err
	}

	key, err := d.getKey(keyInput, indexMap)
	if err != nil {
		return fmt.Errorf("failed to build key: %w", err)
	}

	all := make(map[string]interface{}, len(updates))
	for k, v := range updates {
		all[k] = v
	}
	for k, v := range derivedIndexUpdates(indexMap, updates) {
		all[k] = v
	}

	names := make(map[string]string)
	values := make(map[string]types.AttributeValue)

	updateExpr, err := buildUpdateExpression(all, names, values)
	if err != nil {
		return fmt.Errorf("failed to build update expression: %w", err)
	}

	input := &sdk.UpdateItemInput{
		TableName:                 &d.tableName,
		Key:                       key,
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueNone,
	}

	var condExpr string
	if !cond.IsZero() {
		condExpr, err = buildConditionExpression(cond, names, values)
		if err != nil {
			return err
		}
		input.ConditionExpression = &condExpr
	}

	if _, err = d.client.UpdateItem(ctx, input); err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return cgerrors.NewConditionFailedError("update", condExpr)
		}
		return fmt.Errorf("UpdateWithCondition failed: %w", err)
	}

	return nil
}

// buildKeyFromExpanded builds a DynamoDB key from the expanded index map.
// It requires non-empty values for "PK" and "SK".
func buildKeyFromExpanded(expanded map[string]string) (map[string]types.AttributeValue, error) {
	pk, okPK := expanded["PK"]
	sk, okSK := expanded["SK"]

	if !okPK || !okSK || pk == "" || sk == "" {
		return nil, fmt.Errorf("expanded index map missing valid PK or SK")
	}

	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}, nil
}
