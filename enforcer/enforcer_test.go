/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package enforcer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cgerrors "github.com/suparena/contentguard/errors"
	"github.com/suparena/contentguard/event"
	"github.com/suparena/contentguard/objectstore/mock"
	"github.com/suparena/contentguard/verdict"
)

const (
	bucket = "b"
	path   = "discussionsMedia/u1/x.png"
)

var ev = event.StorageEvent{Bucket: bucket, Name: path, ContentType: "image/png"}

func seeded(md map[string]string) *mock.Store {
	return mock.New().WithObject(bucket, path, mock.Object{ContentType: "image/png", Metadata: md})
}

func TestUnsafeDeletesOnce(t *testing.T) {
	store := seeded(map[string]string{"owner": "u1"})

	action, err := New(store, 0, nil).Apply(context.Background(), ev, verdict.Unsafe)
	require.NoError(t, err)

	assert.Equal(t, ActionDeleted, action)
	assert.Equal(t, 1, store.DeleteCalls())
	assert.Equal(t, 0, store.MergeCalls())
	_, ok := store.Object(bucket, path)
	assert.False(t, ok)
}

func TestUnsafeAlreadyDeleted(t *testing.T) {
	store := mock.New()

	action, err := New(store, 0, nil).Apply(context.Background(), ev, verdict.Unsafe)
	require.NoError(t, err)

	assert.Equal(t, ActionAlreadyDeleted, action)
	assert.Equal(t, 1, store.DeleteCalls())
	assert.Equal(t, 0, store.MergeCalls())
}

func TestUnsafeDeleteFailureIsNotRetriedOrTagged(t *testing.T) {
	store := seeded(nil).WithDeleteError(errors.New("service unavailable"))

	action, err := New(store, 0, nil).Apply(context.Background(), ev, verdict.Unsafe)

	assert.Equal(t, ActionNone, action)
	assert.True(t, cgerrors.IsEnforcement(err))
	assert.Equal(t, 1, store.DeleteCalls())
	assert.Equal(t, 0, store.MergeCalls())
}

func TestSafeMergesPreservingKeys(t *testing.T) {
	store := seeded(map[string]string{"owner": "u1", "caption": "sunset"})

	action, err := New(store, 0, nil).Apply(context.Background(), ev, verdict.Safe)
	require.NoError(t, err)

	assert.Equal(t, ActionTagged, action)
	assert.Equal(t, 1, store.MergeCalls())
	assert.Equal(t, 0, store.DeleteCalls())

	obj, ok := store.Object(bucket, path)
	require.True(t, ok)
	assert.Equal(t, map[string]string{
		"owner":            "u1",
		"caption":          "sunset",
		"moderated":        "true",
		"moderationStatus": "SAFE",
	}, obj.Metadata)
}

func TestSafeMergeFailure(t *testing.T) {
	store := seeded(nil).WithMergeError(errors.New("access denied"))

	action, err := New(store, 0, nil).Apply(context.Background(), ev, verdict.Safe)

	assert.Equal(t, ActionNone, action)
	assert.True(t, cgerrors.IsEnforcement(err))
	assert.Equal(t, 1, store.MergeCalls())
}

func TestNonVerdictsTouchNothing(t *testing.T) {
	for _, outcome := range []verdict.Outcome{verdict.Error, verdict.Skipped, verdict.Unknown} {
		store := seeded(map[string]string{"owner": "u1"})

		action, err := New(store, 0, nil).Apply(context.Background(), ev, outcome)
		require.NoError(t, err)

		assert.Equal(t, ActionNone, action, outcome.String())
		assert.Equal(t, 0, store.MutationCalls(), outcome.String())

		obj, _ := store.Object(bucket, path)
		assert.Equal(t, map[string]string{"owner": "u1"}, obj.Metadata)
	}
}
