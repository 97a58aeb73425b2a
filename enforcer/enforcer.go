/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package enforcer applies a moderation outcome to the stored object:
// unsafe objects are deleted, safe objects are tagged, anything else is
// left untouched.
package enforcer

import (
	"context"
	"time"

	"go.uber.org/zap"

	cgerrors "github.com/suparena/contentguard/errors"
	"github.com/suparena/contentguard/event"
	"github.com/suparena/contentguard/objectstore"
	"github.com/suparena/contentguard/verdict"
)

// DefaultTimeout bounds each storage call.
const DefaultTimeout = 10 * time.Second

// Action is what the enforcer did to the object.
type Action string

const (
	ActionNone           Action = "none"
	ActionDeleted        Action = "deleted"
	ActionAlreadyDeleted Action = "already_deleted"
	ActionTagged         Action = "tagged"
)

// Enforcer is safe for concurrent use.
type Enforcer struct {
	store   objectstore.Store
	timeout time.Duration
	logger  *zap.Logger
}

// New returns an Enforcer writing through store. A non-positive timeout
// means DefaultTimeout; a nil logger discards.
func New(store objectstore.Store, timeout time.Duration, logger *zap.Logger) *Enforcer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enforcer{store: store, timeout: timeout, logger: logger}
}

// Apply enforces outcome on ev's object. Unsafe issues exactly one delete
// and never tags afterwards. Safe merges the moderation tags into existing
// metadata. Failures are returned as enforcement errors and not retried.
func (e *Enforcer) Apply(ctx context.Context, ev event.StorageEvent, outcome verdict.Outcome) (Action, error) {
	switch outcome {
	case verdict.Unsafe:
		return e.remove(ctx, ev)
	case verdict.Safe:
		return e.tag(ctx, ev)
	default:
		return ActionNone, nil
	}
}

func (e *Enforcer) remove(ctx context.Context, ev event.StorageEvent) (Action, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	err := e.store.Delete(callCtx, ev.Bucket, ev.Name)
	switch {
	case err == nil:
		return ActionDeleted, nil
	case cgerrors.IsNotFound(err):
		e.logger.Debug("object already gone",
			zap.String("bucket", ev.Bucket),
			zap.String("path", ev.Name),
		)
		return ActionAlreadyDeleted, nil
	default:
		return ActionNone, cgerrors.NewEnforcementError(ev.Key(), err)
	}
}

func (e *Enforcer) tag(ctx context.Context, ev event.StorageEvent) (Action, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.store.MergeMetadata(callCtx, ev.Bucket, ev.Name, verdict.SafeTags()); err != nil {
		return ActionNone, cgerrors.NewEnforcementError(ev.Key(), err)
	}
	return ActionTagged, nil
}
