/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/contentguard/storagemodels"
)

// Stream pages through a query in the background and delivers typed items
// on the returned channel. The channel is closed when the query is
// exhausted or fails, or when ctx is done.
func (d *DynamodbDataStore[T]) Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}

	p := &pager[T]{
		store:   d,
		options: options,
		out:     make(chan storagemodels.StreamResult[T], options.BufferSize),
		started: time.Now(),
	}
	go p.run(ctx, params)
	return p.out
}

// pager holds the state of one Stream call.
type pager[T any] struct {
	store   *DynamodbDataStore[T]
	options storagemodels.StreamOptions
	out     chan storagemodels.StreamResult[T]

	started  time.Time
	items    int64
	pages    int
	nonFatal []error
}

func (p *pager[T]) run(ctx context.Context, params *storagemodels.QueryParams) {
	defer close(p.out)

	input := queryInput(params)
	input.Limit = aws.Int32(p.options.PageSize)

	for ctx.Err() == nil {
		page, err := p.store.queryWithRetry(ctx, input, p.options)
		if err != nil {
			p.fail(ctx, input.ExclusiveStartKey, err)
			return
		}
		p.pages++

		for _, raw := range page.Items {
			r := decodeItem[T](raw, storagemodels.StreamMeta{
				Index:      p.items,
				PageNumber: p.pages,
				Timestamp:  time.Now(),
			})
			p.items++
			if r.Error != nil {
				p.nonFatal = append(p.nonFatal, r.Error)
			}
			if !p.send(ctx, r) {
				return
			}
		}
		p.progress(page.LastEvaluatedKey)

		if len(page.LastEvaluatedKey) == 0 {
			p.progress(nil)
			return
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}
}

// fail ends the stream after a page query gave up. A failure the
// ErrorHandler tolerates ends it without an error result, since the next
// page key is unknown.
func (p *pager[T]) fail(ctx context.Context, lastKey map[string]types.AttributeValue, err error) {
	if p.options.ErrorHandler != nil && p.options.ErrorHandler(err) {
		p.nonFatal = append(p.nonFatal, err)
		p.progress(lastKey)
		return
	}
	p.send(ctx, storagemodels.StreamResult[T]{
		Error: fmt.Errorf("query failed: %w", err),
		Meta: storagemodels.StreamMeta{
			Index:      p.items,
			PageNumber: p.pages,
			Timestamp:  time.Now(),
		},
	})
}

func (p *pager[T]) send(ctx context.Context, r storagemodels.StreamResult[T]) bool {
	select {
	case p.out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *pager[T]) progress(lastKey map[string]types.AttributeValue) {
	if p.options.ProgressHandler == nil {
		return
	}
	sp := storagemodels.StreamProgress{
		ItemsProcessed: p.items,
		PagesProcessed: p.pages,
		LastKey:        lastKey,
		Errors:         p.nonFatal,
		StartTime:      p.started,
	}
	if secs := time.Since(p.started).Seconds(); secs > 0 {
		sp.CurrentRate = float64(p.items) / secs
	}
	p.options.ProgressHandler(sp)
}

// queryWithRetry retries throttled and server-side failures, waiting
// RetryBackoff times the attempt number between tries.
func (d *DynamodbDataStore[T]) queryWithRetry(ctx context.Context, input *dynamodb.QueryInput, options storagemodels.StreamOptions) (*dynamodb.QueryOutput, error) {
	var lastErr error
	for attempt := 1; attempt <= options.MaxRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := d.client.Query(ctx, input)
		switch {
		case err == nil:
			return out, nil
		case !isRetryableError(err):
			return nil, err
		}
		lastErr = err

		if attempt > options.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * options.RetryBackoff):
		}
	}
	return nil, fmt.Errorf("query failed after %d retries: %w", options.MaxRetries, lastErr)
}

func decodeItem[T any](raw map[string]types.AttributeValue, meta storagemodels.StreamMeta) storagemodels.StreamResult[T] {
	r := storagemodels.StreamResult[T]{Raw: raw, Meta: meta}
	var item T
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		r.Error = fmt.Errorf("unmarshal %T: %w", item, err)
		return r
	}
	r.Item = item
	return r
}

func isRetryableError(err error) bool {
	var (
		throughput *types.ProvisionedThroughputExceededException
		limit      *types.RequestLimitExceeded
		internal   *types.InternalServerError
	)
	if errors.As(err, &throughput) || errors.As(err, &limit) || errors.As(err, &internal) {
		return true
	}
	var retryable interface{ RetryableError() bool }
	return errors.As(err, &retryable) && retryable.RetryableError()
}
