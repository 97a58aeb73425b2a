/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package objectstore is the storage collaborator: object deletion and
// metadata read/merge-write. Implementations report a missing object as
// errors.NotFoundError.
package objectstore

import (
	"context"
	"strings"
)

// ObjectInfo is what a metadata read returns.
type ObjectInfo struct {
	Bucket      string
	Key         string
	ContentType string
	Size        int64
	ETag        string
	Metadata    map[string]string
}

// Store mutates objects in a bucket. Implementations must be safe for
// concurrent use.
type Store interface {
	// Delete removes the object.
	Delete(ctx context.Context, bucket, key string) error
	// Head reads content type and user metadata.
	Head(ctx context.Context, bucket, key string) (*ObjectInfo, error)
	// MergeMetadata adds tags to the object's metadata, keeping other keys.
	MergeMetadata(ctx context.Context, bucket, key string, tags map[string]string) error
}

// MergeTags returns existing overlaid with tags. Keys of existing that
// match a tag key case-insensitively are replaced, so a stored "Moderated"
// does not survive next to a new "moderated".
func MergeTags(existing, tags map[string]string) map[string]string {
	merged := make(map[string]string, len(existing)+len(tags))
	for k, v := range existing {
		merged[k] = v
	}
	for tk, tv := range tags {
		for k := range merged {
			if k != tk && strings.EqualFold(k, tk) {
				delete(merged, k)
			}
		}
		merged[tk] = tv
	}
	return merged
}
