// Package pipeline implements the card processing workflow: indicator
// normalization, confidence scoring, review policy, address splitting, and
// tenant field-schema synchronization.
package pipeline

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bhvbhushan/card-capture-api/internal/model"
)

// RawField is one field's annotation as returned by the extraction provider,
// before any validation. Enum values may be missing or out of vocabulary when
// the provider's output drifts.
type RawField struct {
	Value         string `json:"value"`
	OriginalValue string `json:"original_value,omitempty"`
	EditMade      bool   `json:"edit_made"`
	EditType      string `json:"edit_type"`
	TextClarity   string `json:"text_clarity"`
	Certainty     string `json:"certainty"`
	Notes         string `json:"notes,omitempty"`
}

// NormalizeField converts a raw provider annotation into an ExtractedField
// with every enum coerced into its closed vocabulary. It never fails: missing
// or unrecognized indicators default to the most conservative classification,
// so malformed provider output biases toward review rather than acceptance.
func NormalizeField(key string, raw RawField) model.ExtractedField {
	key = model.CanonicalKey(key)
	return model.ExtractedField{
		Key:           key,
		Value:         cleanValue(key, raw.Value),
		OriginalValue: raw.OriginalValue,
		EditMade:      raw.EditMade,
		EditType:      model.NormalizeEditType(raw.EditType),
		TextClarity:   model.NormalizeTextClarity(raw.TextClarity),
		Certainty:     model.NormalizeCertainty(raw.Certainty),
		Notes:         strings.TrimSpace(raw.Notes),
		Source:        "gemini",
	}
}

// NormalizeCard normalizes every field of a raw extraction, canonicalizing
// alternate key names. Keys that are not well-formed identifiers are dropped
// with a warning; everything else always normalizes successfully.
//
// When two raw keys resolve to the same canonical key, the winner is
// deterministic: an exact canonical key beats any alias, and among aliases the
// lexicographically first raw key wins.
func NormalizeCard(raw map[string]RawField) map[string]model.ExtractedField {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fields := make(map[string]model.ExtractedField, len(raw))
	for _, key := range keys {
		canonical := model.CanonicalKey(key)
		if !model.ValidFieldKey(canonical) {
			zap.L().Warn("normalize: dropping malformed field key", zap.String("key", key))
			continue
		}
		if _, exists := fields[canonical]; exists && key != canonical {
			zap.L().Warn("normalize: dropping duplicate alias",
				zap.String("key", key), zap.String("canonical", canonical))
			continue
		}
		fields[canonical] = NormalizeField(key, raw[key])
	}
	return fields
}

// placeholderValues are provider strings that mean "no value".
var placeholderValues = map[string]bool{
	"N/A": true, "NA": true, "NONE": true, "NULL": true,
}

// cleanValue scrubs placeholder values and applies per-key formatting.
func cleanValue(key, value string) string {
	value = strings.TrimSpace(value)
	if placeholderValues[strings.ToUpper(value)] {
		return ""
	}
	switch key {
	case "cell":
		return formatPhone(value)
	case "date_of_birth":
		return formatDate(value)
	}
	return value
}

var nonDigitRe = regexp.MustCompile(`\D`)

// formatPhone normalizes a US phone number to xxx-xxx-xxxx. Values that do
// not contain 10 digits (or 11 with a leading 1) pass through unchanged.
func formatPhone(phone string) string {
	digits := nonDigitRe.ReplaceAllString(phone, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return phone
	}
	return digits[:3] + "-" + digits[3:6] + "-" + digits[6:]
}

// datePatterns cover the formats handwritten cards commonly use. The ISO
// pattern puts the year first; the rest are month-first.
var datePatterns = []struct {
	re        *regexp.Regexp
	yearFirst bool
}{
	{regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`), false},
	{regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`), false},
	{regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`), false},
	{regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`), true},
}

// formatDate normalizes a date to MM/DD/YYYY, validating that it is a real
// calendar date. Unparseable input passes through unchanged.
func formatDate(s string) string {
	trimmed := strings.TrimSpace(s)
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		var year, month, day string
		if p.yearFirst {
			year, month, day = m[1], m[2], m[3]
		} else {
			month, day, year = m[1], m[2], m[3]
		}
		t, err := time.Parse("2006-1-2", year+"-"+month+"-"+day)
		if err != nil {
			continue
		}
		return t.Format("01/02/2006")
	}
	return s
}
