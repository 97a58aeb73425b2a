/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// StreamResult is one streamed item. When Error is set Item is the zero
// value and Raw, if present, holds the item that failed to decode.
type StreamResult[T any] struct {
	Item  T
	Raw   map[string]types.AttributeValue
	Error error
	Meta  StreamMeta
}

// StreamMeta locates an item in the stream. Index is 0-based, PageNumber
// 1-based.
type StreamMeta struct {
	Index      int64
	PageNumber int
	Timestamp  time.Time
}

// StreamOptions tunes a stream. See DefaultStreamOptions.
type StreamOptions struct {
	BufferSize   int
	MaxRetries   int
	RetryBackoff time.Duration
	PageSize     int32

	// ProgressHandler is called after every page and once at the end.
	ProgressHandler func(StreamProgress)
	// ErrorHandler decides whether a failed page query ends the stream
	// silently (true) or with an error result (false).
	ErrorHandler func(error) bool
}

// StreamProgress is reported to StreamOptions.ProgressHandler.
type StreamProgress struct {
	ItemsProcessed int64
	PagesProcessed int
	LastKey        map[string]types.AttributeValue
	Errors         []error
	StartTime      time.Time
	CurrentRate    float64 // items per second
}

// StreamOption configures a stream.
type StreamOption func(*StreamOptions)

// DefaultStreamOptions buffers 100 items, reads pages of 100 and retries
// throttled pages 3 times with a 1s linear backoff.
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		BufferSize:   100,
		MaxRetries:   3,
		RetryBackoff: time.Second,
		PageSize:     100,
	}
}

func WithBufferSize(size int) StreamOption {
	return func(o *StreamOptions) { o.BufferSize = size }
}

func WithMaxRetries(retries int) StreamOption {
	return func(o *StreamOptions) { o.MaxRetries = retries }
}

func WithRetryBackoff(backoff time.Duration) StreamOption {
	return func(o *StreamOptions) { o.RetryBackoff = backoff }
}

func WithPageSize(size int32) StreamOption {
	return func(o *StreamOptions) { o.PageSize = size }
}

func WithProgressHandler(handler func(StreamProgress)) StreamOption {
	return func(o *StreamOptions) { o.ProgressHandler = handler }
}

func WithErrorHandler(handler func(error) bool) StreamOption {
	return func(o *StreamOptions) { o.ErrorHandler = handler }
}
