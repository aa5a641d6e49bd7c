package pipeline

import (
	"strings"

	"github.com/bhvbhushan/card-capture-api/internal/model"
)

// DefaultReviewThreshold is the confidence below which a required field is
// flagged for review.
const DefaultReviewThreshold = 0.7

// reviewCandidate bundles everything the review rules inspect.
type reviewCandidate struct {
	field      model.ExtractedField
	confidence float64
	required   bool
	threshold  float64
}

// reviewRule is one entry of the ordered review policy. The first rule whose
// match function returns true decides the outcome; later rules are not
// consulted, so only one reason is ever reported even when several conditions
// hold at once.
type reviewRule struct {
	name   string
	match  func(reviewCandidate) bool
	reason func(reviewCandidate) string
}

// uncertaintyKeywords in provider notes flag a field even when the structured
// indicators look fine. The provider sometimes hedges only in prose.
var uncertaintyKeywords = []string{
	"unclear", "unsure", "hard to", "difficult", "might",
	"could be", "ambiguous", "faded", "messy",
}

func notesSuggestUncertainty(notes string) bool {
	lower := strings.ToLower(notes)
	for _, kw := range uncertaintyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// providerNotesOr returns the provider's own notes when present, since they
// give the reviewer more context than a canned sentence.
func providerNotesOr(c reviewCandidate, fallback string) string {
	if c.field.Notes != "" {
		return c.field.Notes
	}
	return fallback
}

var reviewRules = []reviewRule{
	{
		name:  "uncertain",
		match: func(c reviewCandidate) bool { return c.field.Certainty == model.Uncertain },
		reason: func(c reviewCandidate) string {
			return providerNotesOr(c, "This field needs a closer look - the text wasn't clear enough to read confidently")
		},
	},
	{
		name:  "unreadable",
		match: func(c reviewCandidate) bool { return c.field.TextClarity == model.ClarityUnreadable },
		reason: func(c reviewCandidate) string {
			return providerNotesOr(c, "The text here is too unclear to read")
		},
	},
	{
		name:  "unclear_edit",
		match: func(c reviewCandidate) bool { return c.field.EditType == model.EditUnclearText },
		reason: func(c reviewCandidate) string {
			return providerNotesOr(c, "The handwriting here is difficult to make out clearly")
		},
	},
	{
		name:  "required_empty",
		match: func(c reviewCandidate) bool { return c.required && c.field.Empty() },
		reason: func(c reviewCandidate) string {
			return providerNotesOr(c, "This required field appears to be empty")
		},
	},
	{
		name:  "required_low_confidence",
		match: func(c reviewCandidate) bool { return c.required && c.confidence < c.threshold },
		reason: func(c reviewCandidate) string {
			return providerNotesOr(c, "This required field could use a second look to make sure it's accurate")
		},
	},
	{
		name:   "notes_uncertainty",
		match:  func(c reviewCandidate) bool { return notesSuggestUncertainty(c.field.Notes) },
		reason: func(c reviewCandidate) string { return c.field.Notes },
	},
}

// EvaluateReview decides whether a field requires human review. It is a total
// function over all field states: every input yields a decision, and the
// returned reason is non-empty exactly when review is needed. Rules are
// evaluated in order and the first match wins.
func EvaluateReview(f model.ExtractedField, confidence float64, required bool, threshold float64) (bool, string) {
	if threshold <= 0 {
		threshold = DefaultReviewThreshold
	}
	c := reviewCandidate{field: f, confidence: confidence, required: required, threshold: threshold}
	for _, rule := range reviewRules {
		if rule.match(c) {
			return true, rule.reason(c)
		}
	}
	return false, ""
}
