package pipeline

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bhvbhushan/card-capture-api/internal/config"
	"github.com/bhvbhushan/card-capture-api/internal/model"
	"github.com/bhvbhushan/card-capture-api/internal/store"
)

// Pipeline assembles card records from raw extraction output: normalization,
// confidence scoring, review policy, address splitting, and tenant field
// schema synchronization.
type Pipeline struct {
	store     store.Store
	threshold float64
}

// New creates a Pipeline backed by the given store.
func New(st store.Store, cfg config.PipelineConfig) *Pipeline {
	threshold := cfg.ReviewThreshold
	if threshold <= 0 {
		threshold = DefaultReviewThreshold
	}
	return &Pipeline{store: st, threshold: threshold}
}

// Process runs the full pipeline for one card and persists the result.
//
// Scoring and review evaluation are pure and cannot fail; the only fatal
// conditions are store errors during schema sync or persistence, which
// propagate to the caller as retryable failures. The whole operation is
// idempotent for a given cardID: sync is an upsert-if-absent and SaveCard
// upserts by id, so a retry after a partial failure converges.
func (p *Pipeline) Process(ctx context.Context, tenantID, cardID string, raw map[string]RawField) (*model.CardRecord, error) {
	if cardID == "" {
		cardID = uuid.NewString()
	}
	log := zap.L().With(zap.String("tenant_id", tenantID), zap.String("card_id", cardID))
	log.Info("pipeline: processing card", zap.Int("raw_fields", len(raw)))

	fields := NormalizeCard(raw)

	// Split combined address fields. Sub-fields never overwrite a component
	// the provider extracted directly; a successful split consumes its source
	// field, a failed one leaves it untouched.
	for key, f := range fields {
		subs := SplitCombinedAddress(f)
		if subs == nil {
			continue
		}
		for _, sub := range subs {
			if existing, ok := fields[sub.Key]; ok && !existing.Derived && !existing.Empty() {
				continue
			}
			fields[sub.Key] = sub
		}
		delete(fields, key)
		log.Debug("pipeline: split combined address field",
			zap.String("key", key), zap.Int("components", len(subs)))
	}

	// Schema sync: insert configs for newly observed keys with defaults.
	// Existing rows are never touched.
	defaults := make([]model.TenantFieldConfig, 0, len(fields))
	for key := range fields {
		defaults = append(defaults, model.DefaultFieldConfig(tenantID, key))
	}
	if err := p.store.EnsureFieldConfigs(ctx, tenantID, defaults); err != nil {
		return nil, eris.Wrap(err, "pipeline: sync field schema")
	}

	configs, err := p.store.GetFieldConfigs(ctx, tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load field configs")
	}

	scored := make(map[string]model.ScoredField, len(fields))
	for key, f := range fields {
		confidence := Score(f)
		needsReview, reason := EvaluateReview(f, confidence, configs[key].Required, p.threshold)
		scored[key] = model.ScoredField{
			ExtractedField: f,
			Confidence:     confidence,
			NeedsReview:    needsReview,
			ReviewReason:   reason,
		}
	}

	// Fields the tenant requires but the extraction did not produce are
	// recorded as empty and flagged, so the reviewer sees the gap.
	for key, cfg := range configs {
		if !cfg.Required || !cfg.Enabled {
			continue
		}
		if _, ok := scored[key]; ok {
			continue
		}
		scored[key] = model.ScoredField{
			ExtractedField: model.ExtractedField{
				Key:         key,
				EditType:    model.EditMissingData,
				TextClarity: model.ClarityUnreadable,
				Certainty:   model.Uncertain,
				Source:      "missing_required",
			},
			Confidence:   0,
			NeedsReview:  true,
			ReviewReason: "Required field was not detected on the card",
		}
	}

	record := &model.CardRecord{
		CardID:       cardID,
		TenantID:     tenantID,
		Fields:       scored,
		ReviewStatus: reviewStatus(scored, configs),
	}

	if err := p.store.SaveCard(ctx, record); err != nil {
		return nil, eris.Wrap(err, "pipeline: save card")
	}

	log.Info("pipeline: card processed",
		zap.Int("fields", len(record.Fields)),
		zap.String("review_status", string(record.ReviewStatus)),
	)
	return record, nil
}

// reviewStatus derives the card-level state: a card needs human review iff
// any tenant-enabled field does.
func reviewStatus(fields map[string]model.ScoredField, configs map[string]model.TenantFieldConfig) model.ReviewStatus {
	for key, f := range fields {
		cfg, ok := configs[key]
		if ok && !cfg.Enabled {
			continue
		}
		if f.NeedsReview {
			return model.StatusNeedsHumanReview
		}
	}
	return model.StatusReviewed
}

// ReviewView computes the tenant-facing view of a card: the intersection of
// the card's fields with the keys enabled in the owning tenant's field
// configuration, sorted by key. The intersection is the sole visibility
// mechanism: a key with no config row for this tenant, or a disabled one, is
// excluded, which is what keeps one tenant's fields out of another's view.
func (p *Pipeline) ReviewView(ctx context.Context, record *model.CardRecord) ([]model.ReviewField, error) {
	configs, err := p.store.GetFieldConfigs(ctx, record.TenantID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load field configs")
	}

	var view []model.ReviewField
	for key, f := range record.Fields {
		cfg, ok := configs[key]
		if !ok || !cfg.Enabled {
			continue
		}
		view = append(view, model.ReviewField{
			Key:          key,
			Label:        model.FieldLabel(key),
			Value:        f.Value,
			Confidence:   f.Confidence,
			NeedsReview:  f.NeedsReview,
			ReviewReason: f.ReviewReason,
		})
	}
	sort.Slice(view, func(i, j int) bool { return view[i].Key < view[j].Key })
	return view, nil
}
