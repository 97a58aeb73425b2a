/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package classifier

import (
	"fmt"
	"strings"

	cgerrors "github.com/suparena/contentguard/errors"
)

// Likelihood is a discrete confidence level on a total order. Comparisons
// use the integer rank, never the names.
type Likelihood int

const (
	Unknown Likelihood = iota
	VeryUnlikely
	Unlikely
	Possible
	Likely
	VeryLikely
)

var likelihoodNames = [...]string{
	Unknown:      "UNKNOWN",
	VeryUnlikely: "VERY_UNLIKELY",
	Unlikely:     "UNLIKELY",
	Possible:     "POSSIBLE",
	Likely:       "LIKELY",
	VeryLikely:   "VERY_LIKELY",
}

// ParseLikelihood parses names such as "LIKELY", "very_likely" or "Very Likely".
func ParseLikelihood(s string) (Likelihood, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	for i, name := range likelihoodNames {
		if name == norm {
			return Likelihood(i), nil
		}
	}
	return Unknown, cgerrors.NewValidationError("likelihood", fmt.Sprintf("unknown likelihood %q", s))
}

// String returns the canonical upper-case name.
func (l Likelihood) String() string {
	if l < Unknown || l > VeryLikely {
		return likelihoodNames[Unknown]
	}
	return likelihoodNames[l]
}

// Rank is the position on the scale, 0 for Unknown.
func (l Likelihood) Rank() int {
	return int(l)
}

// AtLeast reports whether l ranks at or above threshold.
func (l Likelihood) AtLeast(threshold Likelihood) bool {
	return l.Rank() >= threshold.Rank()
}

// MarshalText implements encoding.TextMarshaler.
func (l Likelihood) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Likelihood) UnmarshalText(text []byte) error {
	parsed, err := ParseLikelihood(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// FromConfidence buckets a 0-100 confidence score onto the scale.
func FromConfidence(confidence float32) Likelihood {
	switch {
	case confidence >= 90:
		return VeryLikely
	case confidence >= 70:
		return Likely
	case confidence >= 50:
		return Possible
	case confidence >= 25:
		return Unlikely
	default:
		return VeryUnlikely
	}
}
