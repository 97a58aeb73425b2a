/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package verdict defines moderation outcomes and the metadata tags written
// onto moderated objects.
package verdict

// Outcome is the result of moderating one storage event.
type Outcome int

const (
	// Unknown is the zero value and never a valid result.
	Unknown Outcome = iota
	// Safe means no monitored category was triggered; the object gets tagged.
	Safe
	// Unsafe means at least one category met the threshold; the object gets deleted.
	Unsafe
	// Skipped means the event never reached classification.
	Skipped
	// Error means classification or enforcement failed. It is never a verdict.
	Error
)

// Object metadata tags written on a safe verdict.
const (
	TagModerated = "moderated"
	TagStatus    = "moderationStatus"

	ModeratedTrue = "true"
	StatusSafe    = "SAFE"
)

var outcomeNames = map[Outcome]string{
	Unknown: "UNKNOWN",
	Safe:    "SAFE",
	Unsafe:  "UNSAFE",
	Skipped: "SKIPPED",
	Error:   "ERROR",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsVerdict reports whether o is a terminal Safe/Unsafe decision.
func (o Outcome) IsVerdict() bool {
	return o == Safe || o == Unsafe
}

// SafeTags returns a fresh copy of the tags merged onto a safe object.
func SafeTags() map[string]string {
	return map[string]string{
		TagModerated: ModeratedTrue,
		TagStatus:    StatusSafe,
	}
}
