/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ledger

import (
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/suparena/contentguard/registry"
	"github.com/suparena/contentguard/verdict"
)

// EntityName is the EntityType attribute written on ledger items.
const EntityName = "ModerationRecord"

// Record statuses. Everything except InProgress is terminal.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusSafe       = "SAFE"
	StatusUnsafe     = "UNSAFE"
	StatusSkipped    = "SKIPPED"
	StatusError      = "ERROR"
)

// Record is the ledger entry of one object. Timestamps are strfmt
// date-time strings so the GSI1 sort key orders by time.
type Record struct {
	ObjectKey   string
	Bucket      string
	Name        string
	ContentType string
	Generation  string
	Status      string
	Reason      string
	Action      string
	Triggered   []string
	Attempts    int
	RunID       string
	DeliveryID  string
	CreatedAt   string
	UpdatedAt   string
}

// IndexMap lays records out as one item per object, with GSI1 listing
// objects by status ordered by last update.
var IndexMap = map[string]string{
	"PK":     "OBJECT#{ObjectKey}",
	"SK":     "OBJECT#{ObjectKey}",
	"GSI1PK": "STATUS#{Status}",
	"GSI1SK": "{UpdatedAt}",
}

func init() {
	registry.Register[Record](EntityName, IndexMap)
}

// KeyOf returns the datastore key of r.
func KeyOf(r Record) string {
	return r.ObjectKey
}

// StatusFor maps an outcome onto a record status.
func StatusFor(o verdict.Outcome) string {
	switch o {
	case verdict.Safe:
		return StatusSafe
	case verdict.Unsafe:
		return StatusUnsafe
	case verdict.Skipped:
		return StatusSkipped
	default:
		return StatusError
	}
}

// UpdatedTime parses UpdatedAt; the zero time is returned for garbage.
func (r Record) UpdatedTime() time.Time {
	dt, err := strfmt.ParseDateTime(r.UpdatedAt)
	if err != nil {
		return time.Time{}
	}
	return time.Time(dt)
}

func formatTime(t time.Time) string {
	return strfmt.DateTime(t.UTC()).String()
}
