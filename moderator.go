/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package contentguard

import (
	"context"

	"go.uber.org/zap"

	"github.com/suparena/contentguard/classifier"
	"github.com/suparena/contentguard/enforcer"
	cgerrors "github.com/suparena/contentguard/errors"
	"github.com/suparena/contentguard/event"
	"github.com/suparena/contentguard/filter"
	"github.com/suparena/contentguard/ledger"
	"github.com/suparena/contentguard/metrics"
	"github.com/suparena/contentguard/verdict"
)

// ReasonEnforcementFailed is reported when the verdict could not be applied.
const ReasonEnforcementFailed = "enforcement failed"

// Result is the terminal state of one moderated event.
type Result struct {
	Outcome   verdict.Outcome
	Reason    string
	Action    enforcer.Action
	Triggered []classifier.Category
	Err       error
}

// Moderator runs a storage event through filter, classifier and enforcer.
// It holds no per-event state and is safe for concurrent use.
type Moderator struct {
	filter     *filter.Filter
	classifier *classifier.Adapter
	enforcer   *enforcer.Enforcer
	ledger     *ledger.Ledger
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// Option configures a Moderator.
type Option func(*Moderator)

// WithLedger enables claims and audit records. Without a ledger only the
// moderated metadata tag guards against duplicate deliveries.
func WithLedger(l *ledger.Ledger) Option {
	return func(m *Moderator) { m.ledger = l }
}

// WithLogger sets the logger; the default discards.
func WithLogger(l *zap.Logger) Option {
	return func(m *Moderator) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics records outcomes on mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Moderator) { m.metrics = mt }
}

// NewModerator wires the pipeline stages.
func NewModerator(f *filter.Filter, c *classifier.Adapter, e *enforcer.Enforcer, opts ...Option) *Moderator {
	m := &Moderator{
		filter:     f,
		classifier: c,
		enforcer:   e,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Moderate decides and enforces a verdict for ev. It never returns a Safe
// or Unsafe outcome unless the classifier produced it, and it never
// touches the object on Skipped or Error. deliveryID identifies the
// notification in logs and in the ledger.
func (m *Moderator) Moderate(ctx context.Context, ev event.StorageEvent, deliveryID string) Result {
	res := m.moderate(ctx, ev, deliveryID)
	m.report(ev, deliveryID, res)
	return res
}

func (m *Moderator) moderate(ctx context.Context, ev event.StorageEvent, deliveryID string) Result {
	if d := m.filter.Evaluate(ev); d.Skip {
		return Result{Outcome: d.Outcome(), Reason: d.Reason, Action: enforcer.ActionNone}
	}

	claim, skip := m.claim(ctx, ev, deliveryID)
	if skip {
		return Result{Outcome: verdict.Skipped, Reason: filter.ReasonAlreadyProcessed, Action: enforcer.ActionNone}
	}

	res := m.decide(ctx, ev)
	m.finish(ctx, claim, res)
	return res
}

func (m *Moderator) decide(ctx context.Context, ev event.StorageEvent) Result {
	cls := m.classifier.Classify(ctx, ev)
	if cls.Duration > 0 {
		m.metrics.ObserveClassify(cls.Outcome.String(), cls.Duration)
	}
	if cls.Outcome == verdict.Error {
		return Result{Outcome: verdict.Error, Reason: cls.Reason, Action: enforcer.ActionNone, Err: cls.Err}
	}

	action, err := m.enforcer.Apply(ctx, ev, cls.Outcome)
	if err != nil {
		return Result{
			Outcome:   verdict.Error,
			Reason:    ReasonEnforcementFailed,
			Action:    action,
			Triggered: cls.Triggered,
			Err:       err,
		}
	}
	return Result{Outcome: cls.Outcome, Reason: cls.Reason, Action: action, Triggered: cls.Triggered}
}

// claim returns skip when another delivery owns the object. Ledger failures
// other than a held claim are logged and moderation proceeds unclaimed.
func (m *Moderator) claim(ctx context.Context, ev event.StorageEvent, deliveryID string) (*ledger.Claim, bool) {
	if m.ledger == nil {
		return nil, false
	}
	c, err := m.ledger.Claim(ctx, ev, deliveryID)
	switch {
	case err == nil:
		return c, false
	case cgerrors.IsAlreadyExists(err):
		return nil, true
	default:
		m.metrics.ObserveLedgerError("claim")
		m.logger.Warn("ledger claim failed, moderating without claim",
			zap.String("bucket", ev.Bucket),
			zap.String("path", ev.Name),
			zap.Error(err),
		)
		return nil, false
	}
}

func (m *Moderator) finish(ctx context.Context, c *ledger.Claim, res Result) {
	if c == nil {
		return
	}
	triggered := make([]string, 0, len(res.Triggered))
	for _, cat := range res.Triggered {
		triggered = append(triggered, string(cat))
	}
	err := m.ledger.Finish(ctx, c, ledger.Outcome{
		Outcome:   res.Outcome,
		Reason:    res.Reason,
		Action:    string(res.Action),
		Triggered: triggered,
	})
	if err != nil {
		m.metrics.ObserveLedgerError("finish")
		m.logger.Warn("ledger finish failed",
			zap.String("object", c.ObjectKey),
			zap.String("runId", c.RunID),
			zap.Error(err),
		)
	}
}

func (m *Moderator) report(ev event.StorageEvent, deliveryID string, res Result) {
	m.metrics.ObserveOutcome(res.Outcome.String(), res.Reason)
	if res.Action != "" && res.Action != enforcer.ActionNone {
		m.metrics.ObserveAction(string(res.Action))
	}

	fields := []zap.Field{
		zap.String("bucket", ev.Bucket),
		zap.String("path", ev.Name),
		zap.String("outcome", res.Outcome.String()),
		zap.String("reason", res.Reason),
		zap.String("deliveryId", deliveryID),
	}
	if res.Action != "" && res.Action != enforcer.ActionNone {
		fields = append(fields, zap.String("action", string(res.Action)))
	}
	if len(res.Triggered) > 0 {
		cats := make([]string, len(res.Triggered))
		for i, c := range res.Triggered {
			cats[i] = string(c)
		}
		fields = append(fields, zap.Strings("triggered", cats))
	}

	if res.Outcome == verdict.Error {
		m.logger.Error("moderation failed", append(fields, zap.Error(res.Err))...)
		return
	}
	m.logger.Info("moderation complete", fields...)
}
