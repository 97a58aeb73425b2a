/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package reconcile re-runs moderations that ended in ERROR. Objects are
// re-read from storage so the current metadata decides whether they still
// need work.
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/suparena/contentguard"
	cgerrors "github.com/suparena/contentguard/errors"
	"github.com/suparena/contentguard/event"
	"github.com/suparena/contentguard/ledger"
	"github.com/suparena/contentguard/objectstore"
	"github.com/suparena/contentguard/storagemodels"
	"github.com/suparena/contentguard/verdict"
)

// ReasonObjectMissing is recorded for errored objects that no longer exist.
const ReasonObjectMissing = "object missing"

// Moderator is satisfied by *contentguard.Moderator.
type Moderator interface {
	Moderate(ctx context.Context, ev event.StorageEvent, deliveryID string) contentguard.Result
}

// Summary counts what a run did.
type Summary struct {
	Scanned     int
	Remoderated int
	Skipped     int
	Missing     int
	Failed      int
}

// Reconciler walks ledger failures.
type Reconciler struct {
	ledger  *ledger.Ledger
	store   objectstore.Store
	mod     Moderator
	timeout time.Duration
	logger  *zap.Logger
}

// New returns a Reconciler. timeout bounds each storage read; a
// non-positive value means 10s.
func New(l *ledger.Ledger, store objectstore.Store, mod Moderator, timeout time.Duration, logger *zap.Logger) *Reconciler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{ledger: l, store: store, mod: mod, timeout: timeout, logger: logger}
}

// Run processes every ERROR record updated after since, one at a time. It
// returns the first stream error after draining what the stream delivered.
func (r *Reconciler) Run(ctx context.Context, since time.Time, opts ...storagemodels.StreamOption) (Summary, error) {
	var (
		sum       Summary
		streamErr error
	)

	for res := range r.ledger.Failures(ctx, since, opts...) {
		if res.Error != nil {
			r.logger.Warn("ledger stream error", zap.Error(res.Error))
			if streamErr == nil {
				streamErr = res.Error
			}
			continue
		}
		sum.Scanned++
		r.reconcile(ctx, res.Item, &sum)
	}

	if err := ctx.Err(); err != nil && streamErr == nil {
		streamErr = err
	}

	r.logger.Info("reconcile finished",
		zap.Time("since", since),
		zap.Int("scanned", sum.Scanned),
		zap.Int("remoderated", sum.Remoderated),
		zap.Int("skipped", sum.Skipped),
		zap.Int("missing", sum.Missing),
		zap.Int("failed", sum.Failed),
	)
	return sum, streamErr
}

func (r *Reconciler) reconcile(ctx context.Context, rec ledger.Record, sum *Summary) {
	log := r.logger.With(zap.String("bucket", rec.Bucket), zap.String("path", rec.Name))

	headCtx, cancel := context.WithTimeout(ctx, r.timeout)
	info, err := r.store.Head(headCtx, rec.Bucket, rec.Name)
	cancel()

	switch {
	case cgerrors.IsNotFound(err):
		sum.Missing++
		r.resolve(ctx, log, rec, ReasonObjectMissing)
		return
	case err != nil:
		sum.Failed++
		log.Error("read object", zap.Error(err))
		return
	}

	ev := event.StorageEvent{
		Bucket:      rec.Bucket,
		Name:        rec.Name,
		ContentType: info.ContentType,
		Generation:  rec.Generation,
		Metadata:    info.Metadata,
	}
	if ev.ContentType == "" {
		ev.ContentType = rec.ContentType
	}

	res := r.mod.Moderate(ctx, ev, "reconcile-"+uuid.NewString())
	switch res.Outcome {
	case verdict.Safe, verdict.Unsafe:
		sum.Remoderated++
	case verdict.Skipped:
		sum.Skipped++
		r.resolve(ctx, log, rec, res.Reason)
	default:
		sum.Failed++
	}
}

// resolve closes rec without a moderation run. A record that moved on
// since it was listed is left alone.
func (r *Reconciler) resolve(ctx context.Context, log *zap.Logger, rec ledger.Record, reason string) {
	err := r.ledger.Resolve(ctx, rec, ledger.StatusSkipped, reason)
	switch {
	case err == nil:
		log.Info("resolved without moderation", zap.String("reason", reason))
	case cgerrors.IsConditionFailed(err):
		log.Debug("record changed, not resolving", zap.String("reason", reason))
	default:
		log.Warn("resolve record", zap.Error(err))
	}
}
