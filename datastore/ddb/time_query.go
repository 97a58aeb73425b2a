/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"time"

	"github.com/go-openapi/strfmt"
)

// TimeRangeQueryBuilder specializes GSI queries whose sort key is a
// fixed-width millisecond timestamp in UTC, which sorts lexicographically in
// time order.
type TimeRangeQueryBuilder[T any] struct {
	*GSIQueryBuilder[T]
}

// QueryByTimeRange creates a new time-based query builder on GSI1
func (d *DynamodbDataStore[T]) QueryByTimeRange(partitionKey string) *TimeRangeQueryBuilder[T] {
	return &TimeRangeQueryBuilder[T]{
		GSIQueryBuilder: d.QueryGSI().WithPartitionKey(partitionKey),
	}
}

// FormatSortTime renders t the way time-range sort keys are stored.
func FormatSortTime(t time.Time) string {
	return strfmt.DateTime(t.UTC()).String()
}

// InLast queries items whose sort time falls within the trailing window d
func (q *TimeRangeQueryBuilder[T]) InLast(d time.Duration) *TimeRangeQueryBuilder[T] {
	return q.After(time.Now().Add(-d))
}

// Between queries items between two timestamps
func (q *TimeRangeQueryBuilder[T]) Between(start, end time.Time) *TimeRangeQueryBuilder[T] {
	q.WithSortKeyBetween(FormatSortTime(start), FormatSortTime(end))
	return q
}

// After queries items after a specific timestamp
func (q *TimeRangeQueryBuilder[T]) After(timestamp time.Time) *TimeRangeQueryBuilder[T] {
	q.WithSortKeyGreaterThan(FormatSortTime(timestamp))
	return q
}

// Before queries items before a specific timestamp
func (q *TimeRangeQueryBuilder[T]) Before(timestamp time.Time) *TimeRangeQueryBuilder[T] {
	q.WithSortKeyLessThan(FormatSortTime(timestamp))
	return q
}
