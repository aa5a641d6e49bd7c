// Package model defines the core domain types for card capture processing.
package model

import "regexp"

// TextClarity describes how legible the source text was to the extraction model.
type TextClarity string

// TextClarity values, from most to least legible.
const (
	ClarityClear       TextClarity = "clear"
	ClarityMostlyClear TextClarity = "mostly_clear"
	ClarityUnclear     TextClarity = "unclear"
	ClarityUnreadable  TextClarity = "unreadable"
)

// NormalizeTextClarity coerces a raw provider value into the closed clarity
// vocabulary. Unknown or missing input maps to unreadable, the most
// conservative option, so provider drift can only make a field more likely to
// be flagged for review, never less.
func NormalizeTextClarity(s string) TextClarity {
	switch TextClarity(s) {
	case ClarityClear, ClarityMostlyClear, ClarityUnclear:
		return TextClarity(s)
	default:
		return ClarityUnreadable
	}
}

// Certainty describes how confident the extraction model was in its reading.
type Certainty string

// Certainty values.
const (
	Certain       Certainty = "certain"
	MostlyCertain Certainty = "mostly_certain"
	Uncertain     Certainty = "uncertain"
)

// NormalizeCertainty coerces a raw provider value into the closed certainty
// vocabulary, defaulting to uncertain.
func NormalizeCertainty(s string) Certainty {
	switch Certainty(s) {
	case Certain, MostlyCertain:
		return Certainty(s)
	default:
		return Uncertain
	}
}

// EditType describes what kind of change, if any, the extraction model made to
// the source-detected value.
type EditType string

// EditType values.
const (
	EditNone               EditType = "none"
	EditFormatCorrection   EditType = "format_correction"
	EditOCRCorrection      EditType = "ocr_correction"
	EditTypoFix            EditType = "typo_fix"
	EditCrossValidationFix EditType = "cross_validation_fix"
	EditMissingData        EditType = "missing_data"
	EditUnclearText        EditType = "unclear_text"
)

// NormalizeEditType coerces a raw provider value into the closed edit-type
// vocabulary, defaulting to unclear_text.
func NormalizeEditType(s string) EditType {
	switch EditType(s) {
	case EditNone, EditFormatCorrection, EditOCRCorrection, EditTypoFix,
		EditCrossValidationFix, EditMissingData:
		return EditType(s)
	default:
		return EditUnclearText
	}
}

// ExtractedField is one field of a card as produced by the extraction provider,
// after its quality annotations have been normalized into closed vocabularies.
type ExtractedField struct {
	Key           string      `json:"key"`
	Value         string      `json:"value"`
	OriginalValue string      `json:"original_value,omitempty"`
	EditMade      bool        `json:"edit_made"`
	EditType      EditType    `json:"edit_type"`
	TextClarity   TextClarity `json:"text_clarity"`
	Certainty     Certainty   `json:"certainty"`
	Notes         string      `json:"notes,omitempty"`
	Source        string      `json:"source,omitempty"`
	Derived       bool        `json:"derived,omitempty"`
}

// Empty reports whether the field has no usable value.
func (f ExtractedField) Empty() bool {
	for _, r := range f.Value {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// ScoredField is an ExtractedField with its computed confidence and review
// decision attached. Instances are immutable once produced for a given
// extraction pass.
type ScoredField struct {
	ExtractedField

	Confidence   float64 `json:"confidence"`
	NeedsReview  bool    `json:"needs_review"`
	ReviewReason string  `json:"review_reason,omitempty"`
}

// fieldKeyRe matches well-formed field keys: lowercase snake_case identifiers.
var fieldKeyRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidFieldKey reports whether key is a well-formed field identifier.
func ValidFieldKey(key string) bool {
	return fieldKeyRe.MatchString(key)
}

// canonicalKeys maps alternate field names the provider sometimes emits to
// their canonical equivalents.
var canonicalKeys = map[string]string{
	"birthdate":     "date_of_birth",
	"birth_date":    "date_of_birth",
	"dob":           "date_of_birth",
	"cell_phone":    "cell",
	"phone":         "cell",
	"phone_number":  "cell",
	"mobile":        "cell",
	"email_address": "email",
	"citystatezip":  "city_state_zip",
	"full_name":     "name",
	"student_name":  "name",
	"highschool":    "high_school",
}

// CanonicalKey maps an alternate field name to its canonical form. Keys
// without an alias mapping pass through unchanged.
func CanonicalKey(key string) string {
	if canonical, ok := canonicalKeys[key]; ok {
		return canonical
	}
	return key
}
