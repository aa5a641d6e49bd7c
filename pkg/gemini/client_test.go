package gemini

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EmptyAPIKey(t *testing.T) {
	_, err := New(context.Background(), "", "gemini-2.0-flash")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "api key")

	_, err = New(context.Background(), "   ", "gemini-2.0-flash")
	assert.Error(t, err)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"bare json", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  {\"a\": 1}  ", `{"a": 1}`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, stripCodeFences(tt.input))
		})
	}
}

func TestFirstText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("hello")}}},
		},
	}
	assert.Equal(t, "hello", firstText(resp))

	empty := &genai.GenerateContentResponse{}
	assert.Equal(t, "", firstText(empty))
}

func TestFieldAnnotation_ParsesProviderJSON(t *testing.T) {
	payload := `{
		"name": {
			"value": "John Smith",
			"edit_made": false,
			"edit_type": "none",
			"text_clarity": "clear",
			"certainty": "certain"
		},
		"cell": {
			"value": "555-123-4567",
			"original_value": "5551234567",
			"edit_made": true,
			"edit_type": "format_correction",
			"text_clarity": "mostly_clear",
			"certainty": "mostly_certain",
			"notes": "Reformatted to standard phone format"
		}
	}`

	var annotations map[string]FieldAnnotation
	require.NoError(t, json.Unmarshal([]byte(payload), &annotations))

	require.Len(t, annotations, 2)
	assert.Equal(t, "John Smith", annotations["name"].Value)
	assert.False(t, annotations["name"].EditMade)
	assert.True(t, annotations["cell"].EditMade)
	assert.Equal(t, "format_correction", annotations["cell"].EditType)
	assert.Equal(t, "5551234567", annotations["cell"].OriginalValue)
}
