package main

import (
	"context"

	"github.com/bhvbhushan/card-capture-api/internal/config"
	"github.com/bhvbhushan/card-capture-api/internal/model"
	"github.com/bhvbhushan/card-capture-api/internal/pipeline"
	"github.com/bhvbhushan/card-capture-api/internal/store"
)

// mockStore is an in-memory Store for command tests.
type mockStore struct {
	configs map[string]map[string]model.TenantFieldConfig
	cards   map[string]*model.CardRecord
}

func newMockStore() *mockStore {
	return &mockStore{
		configs: make(map[string]map[string]model.TenantFieldConfig),
		cards:   make(map[string]*model.CardRecord),
	}
}

func newTestEnv() (*Env, *mockStore) {
	st := newMockStore()
	env := &Env{
		Store:    st,
		Pipeline: pipeline.New(st, config.PipelineConfig{ReviewThreshold: 0.7}),
	}
	return env, st
}

func (s *mockStore) EnsureFieldConfigs(_ context.Context, tenantID string, defaults []model.TenantFieldConfig) error {
	rows, ok := s.configs[tenantID]
	if !ok {
		rows = make(map[string]model.TenantFieldConfig)
		s.configs[tenantID] = rows
	}
	for _, cfg := range defaults {
		if _, exists := rows[cfg.FieldKey]; exists {
			continue
		}
		rows[cfg.FieldKey] = cfg
	}
	return nil
}

func (s *mockStore) GetFieldConfigs(_ context.Context, tenantID string) (map[string]model.TenantFieldConfig, error) {
	out := make(map[string]model.TenantFieldConfig, len(s.configs[tenantID]))
	for key, cfg := range s.configs[tenantID] {
		out[key] = cfg
	}
	return out, nil
}

func (s *mockStore) SetFieldConfig(_ context.Context, cfg model.TenantFieldConfig) error {
	rows, ok := s.configs[cfg.TenantID]
	if !ok {
		rows = make(map[string]model.TenantFieldConfig)
		s.configs[cfg.TenantID] = rows
	}
	rows[cfg.FieldKey] = cfg
	return nil
}

func (s *mockStore) SaveCard(_ context.Context, card *model.CardRecord) error {
	s.cards[card.CardID] = card
	return nil
}

func (s *mockStore) GetCard(_ context.Context, cardID string) (*model.CardRecord, error) {
	return s.cards[cardID], nil
}

func (s *mockStore) ListCards(_ context.Context, filter store.CardFilter) ([]model.CardRecord, error) {
	var out []model.CardRecord
	for _, card := range s.cards {
		if filter.TenantID != "" && card.TenantID != filter.TenantID {
			continue
		}
		if filter.ReviewStatus != "" && card.ReviewStatus != filter.ReviewStatus {
			continue
		}
		out = append(out, *card)
	}
	return out, nil
}

func (s *mockStore) Migrate(context.Context) error { return nil }
func (s *mockStore) Close() error                  { return nil }
