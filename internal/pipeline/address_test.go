package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhvbhushan/card-capture-api/internal/model"
)

func TestParseCombinedAddress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		city  string
		state string
		zip   string
		ok    bool
	}{
		{"comma abbr zip", "Boston, MA 02134", "Boston", "MA", "02134", true},
		{"no comma", "Boston MA 02134", "Boston", "MA", "02134", true},
		{"zip plus four", "Boston, MA 02134-1234", "Boston", "MA", "02134-1234", true},
		{"no zip", "Boston, MA", "Boston", "MA", "", true},
		{"full state name", "Columbus, Ohio 43210", "Columbus", "OH", "43210", true},
		{"two word state", "Buffalo New York 14201", "Buffalo", "NY", "14201", true},
		{"two word city no comma", "San Diego CA 92101", "San Diego", "CA", "92101", true},
		{"lowercase", "boston, ma", "boston", "MA", "", true},
		{"trailing period on state", "Boston, MA.", "Boston", "MA", "", true},
		{"garbled text", "garbled text", "", "", "", false},
		{"street address rejected", "123 Main St, Boston, MA 02134", "", "", "", false},
		{"street address no commas rejected", "123 Main St Boston MA 02134", "", "", "", false},
		{"street address two word state rejected", "45 Elm Ave, Buffalo, New York 14201", "", "", "", false},
		{"state only", "MA 02134", "", "", "", false},
		{"unknown state", "Boston, ZZ 02134", "", "", "", false},
		{"empty", "", "", "", "", false},
		{"single word", "Boston", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			city, state, zip, ok := parseCombinedAddress(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.city, city)
			assert.Equal(t, tt.state, state)
			assert.Equal(t, tt.zip, zip)
		})
	}
}

func TestSplitCombinedAddress(t *testing.T) {
	f := model.ExtractedField{
		Key:         "city_state_zip",
		Value:       "Boston, MA 02134",
		TextClarity: model.ClarityMostlyClear,
		Certainty:   model.MostlyCertain,
		EditType:    model.EditNone,
	}

	subs := SplitCombinedAddress(f)
	require.Len(t, subs, 3)

	byKey := make(map[string]model.ExtractedField, len(subs))
	for _, sub := range subs {
		byKey[sub.Key] = sub
	}

	assert.Equal(t, "Boston", byKey["city"].Value)
	assert.Equal(t, "MA", byKey["state"].Value)
	assert.Equal(t, "02134", byKey["zip_code"].Value)

	for key, sub := range byKey {
		assert.Equal(t, model.ClarityMostlyClear, sub.TextClarity, key)
		assert.Equal(t, model.MostlyCertain, sub.Certainty, key)
		assert.Equal(t, model.EditMissingData, sub.EditType, key)
		assert.True(t, sub.Derived, key)
		assert.Equal(t, "split", sub.Source, key)
	}
}

func TestSplitCombinedAddress_NoZip(t *testing.T) {
	f := model.ExtractedField{Key: "city_state", Value: "Austin, TX"}

	subs := SplitCombinedAddress(f)
	require.Len(t, subs, 2)
	assert.Equal(t, "city", subs[0].Key)
	assert.Equal(t, "state", subs[1].Key)
}

func TestSplitCombinedAddress_KeepsStreetAddressWhole(t *testing.T) {
	f := model.ExtractedField{
		Key:         "full_address",
		Value:       "123 Main St, Boston, MA 02134",
		TextClarity: model.ClarityClear,
		Certainty:   model.Certain,
	}

	// Street-bearing text must not be carved into a city value.
	assert.Nil(t, SplitCombinedAddress(f))
}

func TestSplitCombinedAddress_FullAddressWithoutStreet(t *testing.T) {
	f := model.ExtractedField{Key: "full_address", Value: "Boston, MA 02134"}

	subs := SplitCombinedAddress(f)
	require.Len(t, subs, 3)
}

func TestSplitCombinedAddress_Unparseable(t *testing.T) {
	f := model.ExtractedField{Key: "city_state_zip", Value: "garbled text"}
	assert.Nil(t, SplitCombinedAddress(f))
}

func TestSplitCombinedAddress_NotCombinedKey(t *testing.T) {
	f := model.ExtractedField{Key: "city", Value: "Boston, MA 02134"}
	assert.Nil(t, SplitCombinedAddress(f))
}

func TestSplitCombinedAddress_EmptyValue(t *testing.T) {
	f := model.ExtractedField{Key: "city_state_zip", Value: "   "}
	assert.Nil(t, SplitCombinedAddress(f))
}

func TestNormalizeState(t *testing.T) {
	tests := []struct {
		input  string
		expect string
		ok     bool
	}{
		{"MA", "MA", true},
		{"ma", "MA", true},
		{"Massachusetts", "MA", true},
		{"new york", "NY", true},
		{"TX.", "TX", true},
		{" oh ", "OH", true},
		{"ZZ", "", false},
		{"", "", false},
		{"Canada", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := normalizeState(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expect, got)
		})
	}
}
