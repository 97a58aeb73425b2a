/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/contentguard/datastore/mock"
	cgerrors "github.com/suparena/contentguard/errors"
	"github.com/suparena/contentguard/event"
	"github.com/suparena/contentguard/storagemodels"
	"github.com/suparena/contentguard/verdict"
)

var ev = event.StorageEvent{Bucket: "b", Name: "discussionsMedia/u1/x.png", ContentType: "image/png", Generation: "1"}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newLedger() (*Ledger, *mock.DataStore[Record], *clock) {
	store := mock.New[Record]().WithGetKeyFunc(KeyOf)
	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(store, "moderation", WithClock(clk.now)), store, clk
}

func TestClaimFresh(t *testing.T) {
	l, store, _ := newLedger()

	c, err := l.Claim(context.Background(), ev, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "b/discussionsMedia/u1/x.png", c.ObjectKey)
	assert.Equal(t, 1, c.Attempts)
	assert.NotEmpty(t, c.RunID)

	rec := store.GetData()[c.ObjectKey]
	assert.Equal(t, StatusInProgress, rec.Status)
	assert.Equal(t, "m-1", rec.DeliveryID)
	assert.Equal(t, "2025-03-01T12:00:00.000Z", rec.CreatedAt)
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
}

func TestClaimRefusedWhileInProgress(t *testing.T) {
	l, _, clk := newLedger()

	_, err := l.Claim(context.Background(), ev, "m-1")
	require.NoError(t, err)

	clk.advance(time.Minute)
	_, err = l.Claim(context.Background(), ev, "m-2")
	assert.True(t, cgerrors.IsAlreadyExists(err))
}

func TestClaimTakesOverStaleInProgress(t *testing.T) {
	l, store, clk := newLedger()

	first, err := l.Claim(context.Background(), ev, "m-1")
	require.NoError(t, err)

	clk.advance(DefaultClaimTTL + time.Second)
	second, err := l.Claim(context.Background(), ev, "m-2")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Attempts)
	assert.NotEqual(t, first.RunID, second.RunID)

	// the stale run can no longer finish
	err = l.Finish(context.Background(), first, Outcome{Outcome: verdict.Safe})
	assert.True(t, cgerrors.IsConditionFailed(err))

	require.NoError(t, l.Finish(context.Background(), second, Outcome{Outcome: verdict.Safe, Reason: "below threshold", Action: "tagged"}))
	rec := store.GetData()[second.ObjectKey]
	assert.Equal(t, StatusSafe, rec.Status)
	assert.Equal(t, "m-2", rec.DeliveryID)
}

func TestClaimRetriesAfterError(t *testing.T) {
	l, _, clk := newLedger()

	c, err := l.Claim(context.Background(), ev, "m-1")
	require.NoError(t, err)
	require.NoError(t, l.Finish(context.Background(), c, Outcome{Outcome: verdict.Error, Reason: "classifier timeout"}))

	clk.advance(time.Second)
	again, err := l.Claim(context.Background(), ev, "m-2")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Attempts)
}

func TestClaimTerminalRecords(t *testing.T) {
	l, _, clk := newLedger()

	c, err := l.Claim(context.Background(), ev, "m-1")
	require.NoError(t, err)
	require.NoError(t, l.Finish(context.Background(), c, Outcome{Outcome: verdict.Unsafe, Triggered: []string{"racy"}}))

	clk.advance(time.Hour)
	_, err = l.Claim(context.Background(), ev, "m-2")
	assert.True(t, cgerrors.IsAlreadyExists(err), "same generation stays done")

	reupload := ev
	reupload.Generation = "2"
	c2, err := l.Claim(context.Background(), reupload, "m-3")
	require.NoError(t, err, "a new upload under the same path is moderated again")
	assert.Equal(t, 2, c2.Attempts)
}

func TestClaimTerminalRecordWithoutGeneration(t *testing.T) {
	l, _, clk := newLedger()
	bare := ev
	bare.Generation = ""

	c, err := l.Claim(context.Background(), bare, "m-1")
	require.NoError(t, err)
	require.NoError(t, l.Finish(context.Background(), c, Outcome{Outcome: verdict.Unsafe, Triggered: []string{"racy"}}))

	clk.advance(time.Second)
	again, err := l.Claim(context.Background(), bare, "m-2")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Attempts)

	_, err = l.Claim(context.Background(), bare, "m-3")
	assert.True(t, cgerrors.IsAlreadyExists(err), "a live claim still blocks")
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	l, _, _ := newLedger()

	const n = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Claim(context.Background(), ev, "m"); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestClaimStoreFailure(t *testing.T) {
	store := mock.New[Record]().WithGetKeyFunc(KeyOf).WithPutError(errors.New("table not found"))
	l := New(store, "moderation")

	_, err := l.Claim(context.Background(), ev, "m-1")
	require.Error(t, err)
	assert.False(t, cgerrors.IsAlreadyExists(err))
}

func TestFinishRecordsOutcome(t *testing.T) {
	l, store, clk := newLedger()

	c, err := l.Claim(context.Background(), ev, "m-1")
	require.NoError(t, err)

	clk.advance(2 * time.Second)
	require.NoError(t, l.Finish(context.Background(), c, Outcome{
		Outcome:   verdict.Unsafe,
		Reason:    "threshold reached",
		Action:    "deleted",
		Triggered: []string{"adult", "racy"},
	}))

	rec, err := l.Get(context.Background(), "b", "discussionsMedia/u1/x.png")
	require.NoError(t, err)
	assert.Equal(t, StatusUnsafe, rec.Status)
	assert.Equal(t, []string{"adult", "racy"}, rec.Triggered)
	assert.Equal(t, "deleted", rec.Action)
	assert.Equal(t, "2025-03-01T12:00:02.000Z", rec.UpdatedAt)
	assert.Equal(t, 1, store.Count())
}

func TestResolve(t *testing.T) {
	l, store, clk := newLedger()

	c, err := l.Claim(context.Background(), ev, "m-1")
	require.NoError(t, err)
	require.NoError(t, l.Finish(context.Background(), c, Outcome{Outcome: verdict.Error}))

	rec := store.GetData()[c.ObjectKey]
	clk.advance(time.Second)
	require.NoError(t, l.Resolve(context.Background(), rec, StatusSkipped, "object missing"))

	// a second resolve works off a stale read
	err = l.Resolve(context.Background(), rec, StatusSkipped, "object missing")
	assert.True(t, cgerrors.IsConditionFailed(err))

	got := store.GetData()[c.ObjectKey]
	assert.Equal(t, StatusSkipped, got.Status)
	assert.Equal(t, "object missing", got.Reason)
}

func TestFailuresFiltersStatusAndTime(t *testing.T) {
	l, store, _ := newLedger()
	since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	records := []Record{
		{ObjectKey: "b/new-error", Status: StatusError, UpdatedAt: "2025-03-01T10:00:00.000Z"},
		{ObjectKey: "b/old-error", Status: StatusError, UpdatedAt: "2025-02-28T10:00:00.000Z"},
		{ObjectKey: "b/safe", Status: StatusSafe, UpdatedAt: "2025-03-01T10:00:00.000Z"},
	}

	var gotParams *storagemodels.QueryParams
	store.WithStreamFunc(func(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[Record] {
		gotParams = params
		ch := make(chan storagemodels.StreamResult[Record], len(records))
		for _, r := range records {
			ch <- storagemodels.StreamResult[Record]{Item: r}
		}
		close(ch)
		return ch
	})

	var keys []string
	for r := range l.Failures(context.Background(), since) {
		require.NoError(t, r.Error)
		keys = append(keys, r.Item.ObjectKey)
	}

	assert.Equal(t, []string{"b/new-error"}, keys)
	require.NotNil(t, gotParams)
	assert.Equal(t, "moderation", gotParams.TableName)
	assert.Equal(t, "GSI1", *gotParams.IndexName)
	assert.Equal(t, "#pk = :pk AND #sk > :sk", gotParams.KeyConditionExpression)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusSafe, StatusFor(verdict.Safe))
	assert.Equal(t, StatusUnsafe, StatusFor(verdict.Unsafe))
	assert.Equal(t, StatusSkipped, StatusFor(verdict.Skipped))
	assert.Equal(t, StatusError, StatusFor(verdict.Error))
	assert.Equal(t, StatusError, StatusFor(verdict.Unknown))
}

func TestRecentOrdersAndLimits(t *testing.T) {
	l, store, _ := newLedger()
	store.SetData(map[string]Record{
		"b/1": {ObjectKey: "b/1", Status: StatusError, UpdatedAt: "2025-03-01T09:00:00.000Z"},
		"b/2": {ObjectKey: "b/2", Status: StatusError, UpdatedAt: "2025-03-01T11:00:00.000Z"},
		"b/3": {ObjectKey: "b/3", Status: StatusError, UpdatedAt: "2025-03-01T10:00:00.000Z"},
		"b/4": {ObjectKey: "b/4", Status: StatusSafe, UpdatedAt: "2025-03-01T12:00:00.000Z"},
	})

	var gotParams *storagemodels.QueryParams
	store.WithQueryFunc(func(ctx context.Context, params *storagemodels.QueryParams) ([]interface{}, error) {
		gotParams = params
		var out []interface{}
		for _, r := range store.GetData() {
			out = append(out, r)
		}
		return out, nil
	})

	recs, err := l.Recent(context.Background(), StatusError, 2)
	require.NoError(t, err)

	require.Len(t, recs, 2)
	assert.Equal(t, "b/2", recs[0].ObjectKey)
	assert.Equal(t, "b/3", recs[1].ObjectKey)
	require.NotNil(t, gotParams)
	assert.Equal(t, int32(2), *gotParams.Limit)
	assert.False(t, *gotParams.ScanIndexForward)
}

func TestRecentQueryFailure(t *testing.T) {
	l, store, _ := newLedger()
	store.WithQueryFunc(func(ctx context.Context, params *storagemodels.QueryParams) ([]interface{}, error) {
		return nil, errors.New("throttled")
	})

	_, err := l.Recent(context.Background(), StatusError, 10)
	assert.Error(t, err)
}
