/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory objectstore.Store that counts calls.
package mock

import (
	"context"
	"sync"

	cgerrors "github.com/suparena/contentguard/errors"
	"github.com/suparena/contentguard/objectstore"
)

// Object is an in-memory object.
type Object struct {
	ContentType string
	Metadata    map[string]string
}

// Store is an in-memory objectstore.Store.
type Store struct {
	mu      sync.Mutex
	objects map[string]Object

	deleteCalls int
	headCalls   int
	mergeCalls  int

	deleteErr error
	headErr   error
	mergeErr  error
}

var _ objectstore.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{objects: make(map[string]Object)}
}

func objectKey(bucket, key string) string {
	return bucket + "/" + key
}

// WithObject seeds an object.
func (s *Store) WithObject(bucket, key string, obj Object) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectKey(bucket, key)] = Object{ContentType: obj.ContentType, Metadata: copyMap(obj.Metadata)}
	return s
}

// WithDeleteError makes every Delete fail with err.
func (s *Store) WithDeleteError(err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteErr = err
	return s
}

// WithHeadError makes every Head fail with err.
func (s *Store) WithHeadError(err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headErr = err
	return s
}

// WithMergeError makes every MergeMetadata fail with err.
func (s *Store) WithMergeError(err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergeErr = err
	return s
}

// Delete removes the object; a missing object is a NotFoundError.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++

	if s.deleteErr != nil {
		return s.deleteErr
	}
	k := objectKey(bucket, key)
	if _, ok := s.objects[k]; !ok {
		return cgerrors.NewNotFoundError("object", k)
	}
	delete(s.objects, k)
	return nil
}

// Head returns a copy of the object's metadata.
func (s *Store) Head(ctx context.Context, bucket, key string) (*objectstore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headCalls++

	if s.headErr != nil {
		return nil, s.headErr
	}
	k := objectKey(bucket, key)
	obj, ok := s.objects[k]
	if !ok {
		return nil, cgerrors.NewNotFoundError("object", k)
	}
	return &objectstore.ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		ContentType: obj.ContentType,
		Metadata:    copyMap(obj.Metadata),
	}, nil
}

// MergeMetadata merges tags into the object's metadata.
func (s *Store) MergeMetadata(ctx context.Context, bucket, key string, tags map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergeCalls++

	if s.mergeErr != nil {
		return s.mergeErr
	}
	k := objectKey(bucket, key)
	obj, ok := s.objects[k]
	if !ok {
		return cgerrors.NewNotFoundError("object", k)
	}
	obj.Metadata = objectstore.MergeTags(obj.Metadata, tags)
	s.objects[k] = obj
	return nil
}

// Object returns a copy of the stored object.
func (s *Store) Object(bucket, key string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[objectKey(bucket, key)]
	if !ok {
		return Object{}, false
	}
	return Object{ContentType: obj.ContentType, Metadata: copyMap(obj.Metadata)}, true
}

// DeleteCalls returns the number of Delete calls.
func (s *Store) DeleteCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteCalls
}

// HeadCalls returns the number of Head calls.
func (s *Store) HeadCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headCalls
}

// MergeCalls returns the number of MergeMetadata calls.
func (s *Store) MergeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeCalls
}

// MutationCalls returns Delete plus MergeMetadata calls.
func (s *Store) MutationCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteCalls + s.mergeCalls
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
