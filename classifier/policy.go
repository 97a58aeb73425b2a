/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package classifier

import (
	"strings"

	cgerrors "github.com/suparena/contentguard/errors"
	"github.com/suparena/contentguard/verdict"
)

// Category is a safety category scored by the classifier.
type Category string

const (
	Adult    Category = "adult"
	Violence Category = "violence"
	Racy     Category = "racy"
)

// DefaultCategories are monitored unless configured otherwise.
var DefaultCategories = []Category{Adult, Violence, Racy}

// Scored reports whether the classifier backends produce a score for c.
func Scored(c Category) bool {
	for _, d := range DefaultCategories {
		if c == d {
			return true
		}
	}
	return false
}

// DefaultThreshold is the lowest likelihood that triggers a category.
const DefaultThreshold = Likely

// Scores holds per-category likelihoods.
type Scores map[Category]Likelihood

// Policy turns scores into a verdict: any monitored category at or above
// Threshold makes the image unsafe.
type Policy struct {
	Threshold  Likelihood
	Categories []Category
}

// DefaultPolicy returns the LIKELY threshold over adult, violence and racy.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:  DefaultThreshold,
		Categories: append([]Category(nil), DefaultCategories...),
	}
}

// ParseCategories splits a comma-separated category list.
func ParseCategories(s string) ([]Category, error) {
	var out []Category
	seen := make(map[Category]bool)
	for _, part := range strings.Split(s, ",") {
		c := Category(strings.ToLower(strings.TrimSpace(part)))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, cgerrors.NewValidationError("categories", "at least one category is required")
	}
	return out, nil
}

// Validate checks that the policy can produce a verdict.
func (p Policy) Validate() error {
	if p.Threshold <= Unknown || p.Threshold > VeryLikely {
		return cgerrors.NewValidationError("threshold", "must be between VERY_UNLIKELY and VERY_LIKELY")
	}
	if len(p.Categories) == 0 {
		return cgerrors.NewValidationError("categories", "at least one category is required")
	}
	return nil
}

// Triggered lists the monitored categories at or above the threshold, in
// policy order.
func (p Policy) Triggered(scores Scores) []Category {
	var triggered []Category
	for _, c := range p.Categories {
		if scores[c].AtLeast(p.Threshold) {
			triggered = append(triggered, c)
		}
	}
	return triggered
}

// Missing lists the monitored categories absent from scores.
func (p Policy) Missing(scores Scores) []Category {
	var missing []Category
	for _, c := range p.Categories {
		if _, ok := scores[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// Evaluate returns Unsafe when any monitored category is triggered.
func (p Policy) Evaluate(scores Scores) verdict.Outcome {
	if len(p.Triggered(scores)) > 0 {
		return verdict.Unsafe
	}
	return verdict.Safe
}
