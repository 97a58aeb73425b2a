/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/suparena/contentguard/datastore"
	"github.com/suparena/contentguard/datastore/ddb"
	cgerrors "github.com/suparena/contentguard/errors"
	"github.com/suparena/contentguard/event"
	"github.com/suparena/contentguard/storagemodels"
	"github.com/suparena/contentguard/verdict"
)

// DefaultClaimTTL is how long an IN_PROGRESS claim blocks other deliveries.
const DefaultClaimTTL = 5 * time.Minute

// Claim is held by the delivery currently moderating an object.
type Claim struct {
	ObjectKey string
	RunID     string
	Attempts  int
}

// Ledger records moderation runs and hands out per-object claims.
type Ledger struct {
	store    datastore.DataStore[Record]
	table    string
	claimTTL time.Duration
	now      func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClaimTTL replaces DefaultClaimTTL.
func WithClaimTTL(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.claimTTL = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New returns a Ledger over store. table names the DynamoDB table backing
// store and is used to address its GSI.
func New(store datastore.DataStore[Record], table string, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		table:    table,
		claimTTL: DefaultClaimTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Claim marks ev's object IN_PROGRESS for this delivery. An object without
// a record is claimed with a conditional put. An existing record is taken
// over when it is ERROR or a stale IN_PROGRESS, and a terminal record is
// taken over unless both it and ev carry the same generation. The takeover
// is conditioned on the status and timestamp that were read. Any other
// case is an AlreadyExistsError.
func (l *Ledger) Claim(ctx context.Context, ev event.StorageEvent, deliveryID string) (*Claim, error) {
	now := l.now()
	ts := formatTime(now)
	key := ev.Key()

	rec := Record{
		ObjectKey:   key,
		Bucket:      ev.Bucket,
		Name:        ev.Name,
		ContentType: ev.ContentType,
		Generation:  generationOf(ev),
		Status:      StatusInProgress,
		Attempts:    1,
		RunID:       uuid.NewString(),
		DeliveryID:  deliveryID,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	err := l.store.PutWithCondition(ctx, rec, storagemodels.IfNotExists())
	if err == nil {
		return &Claim{ObjectKey: key, RunID: rec.RunID, Attempts: 1}, nil
	}
	if !cgerrors.IsConditionFailed(err) {
		return nil, fmt.Errorf("claim %s: %w", key, err)
	}

	existing, err := l.store.GetOne(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read claim %s: %w", key, err)
	}
	if !l.reclaimable(*existing, rec.Generation, now) {
		return nil, cgerrors.NewAlreadyExistsError("moderation", key)
	}

	attempts := existing.Attempts + 1
	updates := map[string]interface{}{
		"Status":      StatusInProgress,
		"Reason":      "",
		"RunID":       rec.RunID,
		"DeliveryID":  deliveryID,
		"ContentType": ev.ContentType,
		"Generation":  rec.Generation,
		"Attempts":    attempts,
		"UpdatedAt":   ts,
	}
	cond := storagemodels.IfEquals(map[string]interface{}{
		"Status":    existing.Status,
		"UpdatedAt": existing.UpdatedAt,
	})

	if err := l.store.UpdateWithCondition(ctx, key, updates, cond); err != nil {
		if cgerrors.IsConditionFailed(err) {
			return nil, cgerrors.NewAlreadyExistsError("moderation", key)
		}
		return nil, fmt.Errorf("take over claim %s: %w", key, err)
	}
	return &Claim{ObjectKey: key, RunID: rec.RunID, Attempts: attempts}, nil
}

func (l *Ledger) reclaimable(existing Record, generation string, now time.Time) bool {
	switch existing.Status {
	case StatusError:
		return true
	case StatusInProgress:
		return now.Sub(existing.UpdatedTime()) > l.claimTTL
	default:
		// Without generations on both sides a re-upload cannot be told
		// apart from a redelivery, so it is moderated again.
		return generation == "" || existing.Generation == "" || generation != existing.Generation
	}
}

// Outcome is what Finish records.
type Outcome struct {
	Outcome   verdict.Outcome
	Reason    string
	Action    string
	Triggered []string
}

// Finish records the terminal state of the run holding c. It fails with a
// ConditionFailedError when another delivery has taken the claim over.
func (l *Ledger) Finish(ctx context.Context, c *Claim, o Outcome) error {
	updates := map[string]interface{}{
		"Status":    StatusFor(o.Outcome),
		"Reason":    o.Reason,
		"Action":    o.Action,
		"Triggered": o.Triggered,
		"UpdatedAt": formatTime(l.now()),
	}
	cond := storagemodels.IfEquals(map[string]interface{}{"RunID": c.RunID})

	if err := l.store.UpdateWithCondition(ctx, c.ObjectKey, updates, cond); err != nil {
		return fmt.Errorf("finish %s: %w", c.ObjectKey, err)
	}
	return nil
}

// Resolve moves rec to status without a moderation run, provided it has
// not changed since it was read.
func (l *Ledger) Resolve(ctx context.Context, rec Record, status, reason string) error {
	updates := map[string]interface{}{
		"Status":    status,
		"Reason":    reason,
		"UpdatedAt": formatTime(l.now()),
	}
	cond := storagemodels.IfEquals(map[string]interface{}{
		"Status":    rec.Status,
		"UpdatedAt": rec.UpdatedAt,
	})

	if err := l.store.UpdateWithCondition(ctx, rec.ObjectKey, updates, cond); err != nil {
		return fmt.Errorf("resolve %s: %w", rec.ObjectKey, err)
	}
	return nil
}

// Get returns the record for bucket/name.
func (l *Ledger) Get(ctx context.Context, bucket, name string) (*Record, error) {
	return l.store.GetOne(ctx, bucket+"/"+name)
}

// Recent returns up to limit records currently in status, most recently
// updated first. It reads a single page of GSI1.
func (l *Ledger) Recent(ctx context.Context, status string, limit int32) ([]Record, error) {
	q := ddb.NewDynamodbDataStore[Record](nil, l.table).
		QueryGSI().
		WithPartitionKey("STATUS#" + status).
		Descending()
	if limit > 0 {
		q.WithLimit(limit)
	}
	params, err := q.Build()
	if err != nil {
		return nil, err
	}

	items, err := l.store.Query(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list %s records: %w", status, err)
	}

	out := make([]Record, 0, len(items))
	for _, item := range items {
		var rec Record
		switch v := item.(type) {
		case Record:
			rec = v
		case *Record:
			rec = *v
		default:
			continue
		}
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	if limit > 0 && len(out) > int(limit) {
		out = out[:limit]
	}
	return out, nil
}

// Failures streams ERROR records updated after since, oldest first. GSI
// reads are eventually consistent, so records are re-checked before being
// delivered.
func (l *Ledger) Failures(ctx context.Context, since time.Time, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[Record] {
	out := make(chan storagemodels.StreamResult[Record])

	params, err := ddb.NewDynamodbDataStore[Record](nil, l.table).
		QueryByTimeRange("STATUS#" + StatusError).
		After(since).
		Build()
	if err != nil {
		go func() {
			defer close(out)
			out <- storagemodels.StreamResult[Record]{Error: err}
		}()
		return out
	}

	in := l.store.Stream(ctx, params, opts...)
	go func() {
		defer close(out)
		for r := range in {
			if r.Error == nil && (r.Item.Status != StatusError || !r.Item.UpdatedTime().After(since)) {
				continue
			}
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// generationOf identifies the uploaded version of an object.
func generationOf(ev event.StorageEvent) string {
	if ev.Generation != "" {
		return ev.Generation
	}
	return ev.TimeCreated
}
