package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhvbhushan/card-capture-api/internal/model"
)

func writeAnnotationsFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessFile_JSONAnnotations(t *testing.T) {
	env, st := newTestEnv()

	path := writeAnnotationsFile(t, "card.json", `{
		"name":  {"value": "John Smith", "text_clarity": "clear", "certainty": "certain", "edit_type": "none"},
		"email": {"value": "john@example.com", "text_clarity": "clear", "certainty": "certain", "edit_type": "none"}
	}`)

	record, err := processFile(context.Background(), env, "tenant-1", "card-1", path)
	require.NoError(t, err)

	assert.Equal(t, "card-1", record.CardID)
	assert.Equal(t, model.StatusReviewed, record.ReviewStatus)

	saved, err := st.GetCard(context.Background(), "card-1")
	require.NoError(t, err)
	require.NotNil(t, saved)
}

func TestProcessFile_InvalidJSON(t *testing.T) {
	env, _ := newTestEnv()
	path := writeAnnotationsFile(t, "card.json", "{not json")

	_, err := processFile(context.Background(), env, "tenant-1", "", path)
	assert.Error(t, err)
}

func TestProcessFile_MissingFile(t *testing.T) {
	env, _ := newTestEnv()

	_, err := processFile(context.Background(), env, "tenant-1", "", "/nonexistent/card.json")
	assert.Error(t, err)
}

func TestProcessFile_ImageWithoutGemini(t *testing.T) {
	env, _ := newTestEnv()
	path := writeAnnotationsFile(t, "card.png", "\x89PNG\r\n\x1a\n")

	_, err := processFile(context.Background(), env, "tenant-1", "", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Gemini API key")
}
