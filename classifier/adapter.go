/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	cgerrors "github.com/suparena/contentguard/errors"
	"github.com/suparena/contentguard/event"
	"github.com/suparena/contentguard/verdict"
)

// DefaultTimeout bounds a single classification call.
const DefaultTimeout = 10 * time.Second

// ImageRef points at an image in object storage. Images are classified in
// place and never downloaded by this service.
type ImageRef struct {
	Bucket string
	Key    string
}

// Backend scores an image per category.
type Backend interface {
	Classify(ctx context.Context, ref ImageRef) (Scores, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, ref ImageRef) (Scores, error)

func (f BackendFunc) Classify(ctx context.Context, ref ImageRef) (Scores, error) {
	return f(ctx, ref)
}

// Result is the classification of one event.
type Result struct {
	Outcome   verdict.Outcome
	Scores    Scores
	Triggered []Category
	Reason    string
	Duration  time.Duration
	Err       error
}

// Adapter applies the policy to backend scores. Safe for concurrent use.
type Adapter struct {
	backend Backend
	policy  Policy
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithPolicy replaces DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(a *Adapter) { a.policy = p }
}

// WithTimeout replaces DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets the logger; the default discards.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAdapter wraps backend.
func NewAdapter(backend Backend, opts ...Option) *Adapter {
	a := &Adapter{
		backend: backend,
		policy:  DefaultPolicy(),
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Policy returns the policy in effect.
func (a *Adapter) Policy() Policy {
	return a.policy
}

// Classify returns Safe or Unsafe for images, Safe without a backend call
// for videos, and Error for anything that fails. A response without a
// score for every monitored category is malformed. An Error result always
// carries Err.
func (a *Adapter) Classify(ctx context.Context, ev event.StorageEvent) Result {
	if ev.IsVideo() {
		// TODO: route video through segment-level moderation once product decides on it
		a.logger.Warn("video moderation not implemented, treating as safe",
			zap.String("bucket", ev.Bucket),
			zap.String("path", ev.Name),
			zap.String("contentType", ev.ContentType),
		)
		return Result{Outcome: verdict.Safe, Reason: "video not classified"}
	}
	if !ev.IsImage() {
		err := cgerrors.NewValidationError("contentType", "only images can be classified")
		return Result{Outcome: verdict.Error, Reason: "unsupported type", Err: cgerrors.NewClassificationError(ev.Key(), err)}
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	scores, err := a.backend.Classify(callCtx, ImageRef{Bucket: ev.Bucket, Key: ev.Name})
	elapsed := time.Since(start)

	if err == nil && callCtx.Err() != nil {
		err = callCtx.Err()
	}
	if err == nil && scores == nil {
		err = errors.New("classifier returned no scores")
	}
	if err == nil {
		if missing := a.policy.Missing(scores); len(missing) > 0 {
			err = fmt.Errorf("classifier response lacks categories %v", missing)
		}
	}
	if err != nil {
		reason := "classifier call failed"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "classifier timeout"
		}
		return Result{
			Outcome:  verdict.Error,
			Reason:   reason,
			Duration: elapsed,
			Err:      cgerrors.NewClassificationError(ev.Key(), err),
		}
	}

	triggered := a.policy.Triggered(scores)
	res := Result{
		Outcome:   verdict.Safe,
		Scores:    scores,
		Triggered: triggered,
		Reason:    "below threshold",
		Duration:  elapsed,
	}
	if len(triggered) > 0 {
		res.Outcome = verdict.Unsafe
		res.Reason = "threshold reached"
	}
	return res
}
