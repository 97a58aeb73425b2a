/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/contentguard"
	"github.com/suparena/contentguard/classifier"
	dsmock "github.com/suparena/contentguard/datastore/mock"
	"github.com/suparena/contentguard/enforcer"
	"github.com/suparena/contentguard/filter"
	"github.com/suparena/contentguard/ledger"
	"github.com/suparena/contentguard/objectstore/mock"
	"github.com/suparena/contentguard/storagemodels"
)

const millis = "2006-01-02T15:04:05.000Z07:00"

func safeScores(ctx context.Context, ref classifier.ImageRef) (classifier.Scores, error) {
	return classifier.Scores{
		classifier.Adult:    classifier.VeryUnlikely,
		classifier.Violence: classifier.VeryUnlikely,
		classifier.Racy:     classifier.VeryUnlikely,
	}, nil
}

type fixture struct {
	rec     *Reconciler
	records *dsmock.DataStore[ledger.Record]
	objects *mock.Store
	since   time.Time
}

func newFixture(backend classifier.BackendFunc) *fixture {
	records := dsmock.New[ledger.Record]().WithGetKeyFunc(ledger.KeyOf)
	l := ledger.New(records, "moderation")
	objects := mock.New()

	mod := contentguard.NewModerator(
		filter.New(filter.DefaultMediaPrefix),
		classifier.NewAdapter(backend),
		enforcer.New(objects, time.Second, nil),
		contentguard.WithLedger(l),
	)
	return &fixture{
		rec:     New(l, objects, mod, time.Second, nil),
		records: records,
		objects: objects,
		since:   time.Now().Add(-24 * time.Hour),
	}
}

func errored(name string, updated time.Time) ledger.Record {
	return ledger.Record{
		ObjectKey:   "b/" + name,
		Bucket:      "b",
		Name:        name,
		ContentType: "image/png",
		Generation:  "1",
		Status:      ledger.StatusError,
		Reason:      "classifier timeout",
		Attempts:    1,
		UpdatedAt:   updated.UTC().Format(millis),
	}
}

func TestRunRemoderatesAndResolves(t *testing.T) {
	f := newFixture(safeScores)
	recent := time.Now().Add(-time.Hour)

	ok := errored("discussionsMedia/a.png", recent)
	gone := errored("discussionsMedia/gone.png", recent)
	tagged := errored("discussionsMedia/tagged.png", recent)
	stale := errored("discussionsMedia/stale.png", time.Now().Add(-48*time.Hour))
	safe := errored("discussionsMedia/safe.png", recent)
	safe.Status = ledger.StatusSafe

	f.records.SetData(map[string]ledger.Record{
		ok.ObjectKey:     ok,
		gone.ObjectKey:   gone,
		tagged.ObjectKey: tagged,
		stale.ObjectKey:  stale,
		safe.ObjectKey:   safe,
	})
	f.objects.
		WithObject("b", ok.Name, mock.Object{ContentType: "image/png", Metadata: map[string]string{"uploader": "u1"}}).
		WithObject("b", tagged.Name, mock.Object{ContentType: "image/png", Metadata: map[string]string{"moderated": "true"}}).
		WithObject("b", stale.Name, mock.Object{ContentType: "image/png"})

	sum, err := f.rec.Run(context.Background(), f.since)
	require.NoError(t, err)

	assert.Equal(t, Summary{Scanned: 3, Remoderated: 1, Skipped: 1, Missing: 1}, sum)

	data := f.records.GetData()
	assert.Equal(t, ledger.StatusSafe, data[ok.ObjectKey].Status)
	assert.Equal(t, 2, data[ok.ObjectKey].Attempts)
	assert.Equal(t, ledger.StatusSkipped, data[gone.ObjectKey].Status)
	assert.Equal(t, ReasonObjectMissing, data[gone.ObjectKey].Reason)
	assert.Equal(t, ledger.StatusSkipped, data[tagged.ObjectKey].Status)
	assert.Equal(t, filter.ReasonAlreadyProcessed, data[tagged.ObjectKey].Reason)
	assert.Equal(t, ledger.StatusError, data[stale.ObjectKey].Status)

	obj, _ := f.objects.Object("b", ok.Name)
	assert.Equal(t, "true", obj.Metadata["moderated"])
	assert.Equal(t, "u1", obj.Metadata["uploader"])
	assert.Equal(t, 1, f.objects.MergeCalls())
}

func TestRunCountsFailures(t *testing.T) {
	f := newFixture(func(ctx context.Context, ref classifier.ImageRef) (classifier.Scores, error) {
		return nil, errors.New("service unavailable")
	})
	rec := errored("discussionsMedia/a.png", time.Now().Add(-time.Hour))
	f.records.SetData(map[string]ledger.Record{rec.ObjectKey: rec})
	f.objects.WithObject("b", rec.Name, mock.Object{ContentType: "image/png"})

	sum, err := f.rec.Run(context.Background(), f.since)
	require.NoError(t, err)

	assert.Equal(t, Summary{Scanned: 1, Failed: 1}, sum)
	got := f.records.GetData()[rec.ObjectKey]
	assert.Equal(t, ledger.StatusError, got.Status)
	assert.Equal(t, 2, got.Attempts)
	assert.Zero(t, f.objects.MutationCalls())
}

func TestRunHeadFailureLeavesRecord(t *testing.T) {
	f := newFixture(safeScores)
	rec := errored("discussionsMedia/a.png", time.Now().Add(-time.Hour))
	f.records.SetData(map[string]ledger.Record{rec.ObjectKey: rec})
	f.objects.WithHeadError(errors.New("access denied"))

	sum, err := f.rec.Run(context.Background(), f.since)
	require.NoError(t, err)

	assert.Equal(t, Summary{Scanned: 1, Failed: 1}, sum)
	assert.Equal(t, rec, f.records.GetData()[rec.ObjectKey])
}

func TestRunReturnsStreamError(t *testing.T) {
	f := newFixture(safeScores)
	boom := errors.New("table not found")
	f.records.WithStreamFunc(func(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[ledger.Record] {
		ch := make(chan storagemodels.StreamResult[ledger.Record], 1)
		ch <- storagemodels.StreamResult[ledger.Record]{Error: boom}
		close(ch)
		return ch
	})

	sum, err := f.rec.Run(context.Background(), f.since)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Summary{}, sum)
}

var _ Moderator = (*contentguard.Moderator)(nil)
