package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhvbhushan/card-capture-api/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLiteStore_EnsureFieldConfigs_DoesNotOverwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.EnsureFieldConfigs(ctx, "tenant-1", []model.TenantFieldConfig{
		{TenantID: "tenant-1", FieldKey: "name", Enabled: true, Required: true},
	}))

	// Admin flips the flags; a repeat ensure must not undo it.
	require.NoError(t, st.SetFieldConfig(ctx, model.TenantFieldConfig{
		TenantID: "tenant-1", FieldKey: "name", Enabled: false, Required: false,
	}))
	require.NoError(t, st.EnsureFieldConfigs(ctx, "tenant-1", []model.TenantFieldConfig{
		{TenantID: "tenant-1", FieldKey: "name", Enabled: true, Required: true},
	}))

	configs, err := st.GetFieldConfigs(ctx, "tenant-1")
	require.NoError(t, err)
	assert.False(t, configs["name"].Enabled)
	assert.False(t, configs["name"].Required)
}

func TestSQLiteStore_FieldConfigs_TenantScoped(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.EnsureFieldConfigs(ctx, "tenant-a", []model.TenantFieldConfig{
		{TenantID: "tenant-a", FieldKey: "gpa", Enabled: true},
	}))
	require.NoError(t, st.EnsureFieldConfigs(ctx, "tenant-b", []model.TenantFieldConfig{
		{TenantID: "tenant-b", FieldKey: "major", Enabled: true},
	}))

	configsA, err := st.GetFieldConfigs(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Contains(t, configsA, "gpa")
	assert.NotContains(t, configsA, "major")

	configsB, err := st.GetFieldConfigs(ctx, "tenant-b")
	require.NoError(t, err)
	assert.Contains(t, configsB, "major")
	assert.NotContains(t, configsB, "gpa")
}

func TestSQLiteStore_SaveAndGetCard(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	card := &model.CardRecord{
		CardID:   "card-1",
		TenantID: "tenant-1",
		Fields: map[string]model.ScoredField{
			"name": {
				ExtractedField: model.ExtractedField{
					Key:         "name",
					Value:       "John Smith",
					TextClarity: model.ClarityClear,
					Certainty:   model.Certain,
					EditType:    model.EditNone,
				},
				Confidence: 0.95,
			},
		},
		ReviewStatus: model.StatusReviewed,
	}
	require.NoError(t, st.SaveCard(ctx, card))

	got, err := st.GetCard(ctx, "card-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tenant-1", got.TenantID)
	assert.Equal(t, model.StatusReviewed, got.ReviewStatus)
	assert.Equal(t, "John Smith", got.Fields["name"].Value)
	assert.InDelta(t, 0.95, got.Fields["name"].Confidence, 0.0001)
}

func TestSQLiteStore_SaveCard_Upserts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	card := &model.CardRecord{
		CardID:       "card-1",
		TenantID:     "tenant-1",
		Fields:       map[string]model.ScoredField{},
		ReviewStatus: model.StatusNeedsHumanReview,
	}
	require.NoError(t, st.SaveCard(ctx, card))

	card.ReviewStatus = model.StatusReviewed
	require.NoError(t, st.SaveCard(ctx, card))

	got, err := st.GetCard(ctx, "card-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.StatusReviewed, got.ReviewStatus)

	cards, err := st.ListCards(ctx, CardFilter{TenantID: "tenant-1"})
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestSQLiteStore_GetCard_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetCard(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ListCards_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, c := range []*model.CardRecord{
		{CardID: "a1", TenantID: "tenant-a", Fields: map[string]model.ScoredField{}, ReviewStatus: model.StatusReviewed},
		{CardID: "a2", TenantID: "tenant-a", Fields: map[string]model.ScoredField{}, ReviewStatus: model.StatusNeedsHumanReview},
		{CardID: "b1", TenantID: "tenant-b", Fields: map[string]model.ScoredField{}, ReviewStatus: model.StatusNeedsHumanReview},
	} {
		require.NoError(t, st.SaveCard(ctx, c))
	}

	cards, err := st.ListCards(ctx, CardFilter{TenantID: "tenant-a"})
	require.NoError(t, err)
	assert.Len(t, cards, 2)

	cards, err = st.ListCards(ctx, CardFilter{TenantID: "tenant-a", ReviewStatus: model.StatusNeedsHumanReview})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "a2", cards[0].CardID)

	cards, err = st.ListCards(ctx, CardFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}
