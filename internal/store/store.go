// Package store provides persistence for card records and tenant field
// configuration, with Postgres and SQLite drivers behind a common interface.
package store

import (
	"context"

	"github.com/bhvbhushan/card-capture-api/internal/model"
)

// CardFilter specifies criteria for listing cards.
type CardFilter struct {
	TenantID     string             `json:"tenant_id,omitempty"`
	ReviewStatus model.ReviewStatus `json:"review_status,omitempty"`
	Limit        int                `json:"limit,omitempty"`
	Offset       int                `json:"offset,omitempty"`
}

// Store defines the persistence interface for the card capture pipeline.
type Store interface {
	// Tenant field configuration.
	//
	// EnsureFieldConfigs inserts any rows not already present, leaving
	// existing rows untouched. The insert is an upsert keyed on
	// (tenant_id, field_key) that no-ops on conflict, so concurrent
	// synchronizer calls for the same new key converge to a single row.
	EnsureFieldConfigs(ctx context.Context, tenantID string, defaults []model.TenantFieldConfig) error
	GetFieldConfigs(ctx context.Context, tenantID string) (map[string]model.TenantFieldConfig, error)
	// SetFieldConfig overwrites a row's enabled/required flags. This is the
	// explicit admin mutation path; the synchronizer never calls it.
	SetFieldConfig(ctx context.Context, cfg model.TenantFieldConfig) error

	// Cards
	SaveCard(ctx context.Context, card *model.CardRecord) error
	GetCard(ctx context.Context, cardID string) (*model.CardRecord, error)
	ListCards(ctx context.Context, filter CardFilter) ([]model.CardRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
