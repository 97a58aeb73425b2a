/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package filter decides, without side effects, whether a storage event
// needs moderation at all.
package filter

import (
	"strings"

	"github.com/suparena/contentguard/event"
	"github.com/suparena/contentguard/verdict"
)

// DefaultMediaPrefix is the path under which user-submitted community media lives.
const DefaultMediaPrefix = "discussionsMedia/"

// Skip reasons, in evaluation order.
const (
	ReasonIncomplete       = "incomplete event"
	ReasonOutOfScope       = "out of scope path"
	ReasonUnsupportedType  = "unsupported type"
	ReasonAlreadyProcessed = "already processed"
)

// Decision is the filter result. Reason is empty when Skip is false.
type Decision struct {
	Skip   bool
	Reason string
}

// Outcome maps a skip decision to verdict.Skipped.
func (d Decision) Outcome() verdict.Outcome {
	if d.Skip {
		return verdict.Skipped
	}
	return verdict.Unknown
}

// Filter holds the predicate configuration.
type Filter struct {
	MediaPrefix string
}

// New returns a filter scoped to prefix, or DefaultMediaPrefix when empty.
func New(prefix string) *Filter {
	if prefix == "" {
		prefix = DefaultMediaPrefix
	}
	return &Filter{MediaPrefix: prefix}
}

type predicate struct {
	reason string
	match  func(f *Filter, ev event.StorageEvent) bool
}

// predicates run in order; the first match wins.
var predicates = []predicate{
	{ReasonIncomplete, func(_ *Filter, ev event.StorageEvent) bool {
		return !ev.Complete()
	}},
	{ReasonOutOfScope, func(f *Filter, ev event.StorageEvent) bool {
		return !strings.HasPrefix(ev.Name, f.MediaPrefix)
	}},
	{ReasonUnsupportedType, func(_ *Filter, ev event.StorageEvent) bool {
		return !ev.IsImage() && !ev.IsVideo()
	}},
	{ReasonAlreadyProcessed, func(_ *Filter, ev event.StorageEvent) bool {
		return IsModerated(ev)
	}},
}

// Evaluate runs the predicate chain against ev.
func (f *Filter) Evaluate(ev event.StorageEvent) Decision {
	for _, p := range predicates {
		if p.match(f, ev) {
			return Decision{Skip: true, Reason: p.reason}
		}
	}
	return Decision{}
}

// IsModerated reports whether ev already carries moderated=true.
func IsModerated(ev event.StorageEvent) bool {
	v, ok := ev.MetadataValue(verdict.TagModerated)
	return ok && strings.EqualFold(strings.TrimSpace(v), verdict.ModeratedTrue)
}
