package pipeline

import (
	"regexp"
	"strings"

	"github.com/bhvbhushan/card-capture-api/internal/model"
)

// abbrToState maps lowercase state abbreviations to lowercase full names.
var abbrToState = map[string]string{
	"al": "alabama", "ak": "alaska", "az": "arizona", "ar": "arkansas",
	"ca": "california", "co": "colorado", "ct": "connecticut", "de": "delaware",
	"fl": "florida", "ga": "georgia", "hi": "hawaii", "id": "idaho",
	"il": "illinois", "in": "indiana", "ia": "iowa", "ks": "kansas",
	"ky": "kentucky", "la": "louisiana", "me": "maine", "md": "maryland",
	"ma": "massachusetts", "mi": "michigan", "mn": "minnesota", "ms": "mississippi",
	"mo": "missouri", "mt": "montana", "ne": "nebraska", "nv": "nevada",
	"nh": "new hampshire", "nj": "new jersey", "nm": "new mexico", "ny": "new york",
	"nc": "north carolina", "nd": "north dakota", "oh": "ohio", "ok": "oklahoma",
	"or": "oregon", "pa": "pennsylvania", "ri": "rhode island", "sc": "south carolina",
	"sd": "south dakota", "tn": "tennessee", "tx": "texas", "ut": "utah",
	"vt": "vermont", "va": "virginia", "wa": "washington", "wv": "west virginia",
	"wi": "wisconsin", "wy": "wyoming", "dc": "district of columbia",
}

// stateToAbbr maps lowercase full names to lowercase abbreviations.
var stateToAbbr = func() map[string]string {
	m := make(map[string]string, len(abbrToState))
	for abbr, full := range abbrToState {
		m[full] = abbr
	}
	return m
}()

// normalizeState resolves a state token (abbreviation or full name, any case)
// to its uppercase two-letter abbreviation.
func normalizeState(s string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ".")))
	if lower == "" {
		return "", false
	}
	if _, ok := abbrToState[lower]; ok {
		return strings.ToUpper(lower), true
	}
	if abbr, ok := stateToAbbr[lower]; ok {
		return strings.ToUpper(abbr), true
	}
	return "", false
}

// zipTailRe matches a trailing ZIP or ZIP+4.
var zipTailRe = regexp.MustCompile(`\b(\d{5}(?:-\d{4})?)\s*$`)

// plausibleCity rejects city segments that still carry street text. A segment
// with an embedded comma spans more than one address component, and one
// starting with a digit is a street number; splitting either would put street
// data into the city field.
func plausibleCity(s string) bool {
	if s == "" || strings.Contains(s, ",") {
		return false
	}
	return s[0] < '0' || s[0] > '9'
}

// parseCombinedAddress decomposes combined address text of the forms
// "City, ST ZIP", "City ST ZIP", and "City, ST" (full state names accepted,
// ZIP optional). It returns ok=false when no city/state pair can be
// identified, or when the would-be city segment still contains street text;
// callers must then leave the source field untouched.
func parseCombinedAddress(s string) (city, state, zip string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", "", false
	}

	if m := zipTailRe.FindStringIndex(s); m != nil {
		zip = strings.TrimSpace(s[m[0]:m[1]])
		s = strings.TrimRight(strings.TrimSpace(s[:m[0]]), ",")
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, ","); idx >= 0 {
		abbr, found := normalizeState(s[idx+1:])
		if !found {
			return "", "", "", false
		}
		city = strings.TrimSpace(s[:idx])
		if !plausibleCity(city) {
			return "", "", "", false
		}
		return city, abbr, zip, true
	}

	words := strings.Fields(s)
	// Two-word state names ("New York", "Rhode Island") before single tokens.
	if len(words) >= 3 {
		if abbr, found := normalizeState(strings.Join(words[len(words)-2:], " ")); found {
			if city = strings.Join(words[:len(words)-2], " "); plausibleCity(city) {
				return city, abbr, zip, true
			}
			return "", "", "", false
		}
	}
	if len(words) >= 2 {
		if abbr, found := normalizeState(words[len(words)-1]); found {
			if city = strings.Join(words[:len(words)-1], " "); plausibleCity(city) {
				return city, abbr, zip, true
			}
			return "", "", "", false
		}
	}
	return "", "", "", false
}

// SplitCombinedAddress decomposes a combined-address field into city, state,
// and zip_code sub-fields. Each sub-field inherits the parent's clarity and
// certainty (a derived value cannot be more trustworthy than its source) and
// is tagged as missing_data since it did not exist as its own field on the
// card. Unparseable input yields nil: the combined field is left as-is and no
// values are fabricated.
func SplitCombinedAddress(f model.ExtractedField) []model.ExtractedField {
	if !model.CombinedAddressKey(f.Key) || f.Empty() {
		return nil
	}

	city, state, zip, ok := parseCombinedAddress(f.Value)
	if !ok {
		return nil
	}

	derive := func(key, value string) model.ExtractedField {
		return model.ExtractedField{
			Key:         key,
			Value:       value,
			EditMade:    true,
			EditType:    model.EditMissingData,
			TextClarity: f.TextClarity,
			Certainty:   f.Certainty,
			Notes:       "Derived by splitting " + f.Key,
			Source:      "split",
			Derived:     true,
		}
	}

	subs := []model.ExtractedField{
		derive("city", city),
		derive("state", state),
	}
	if zip != "" {
		subs = append(subs, derive("zip_code", zip))
	}
	return subs
}
