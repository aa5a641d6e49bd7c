package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/bhvbhushan/card-capture-api/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the local
// development driver; semantics match PostgresStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS tenant_field_configs (
	tenant_id  TEXT NOT NULL,
	field_key  TEXT NOT NULL,
	enabled    INTEGER NOT NULL DEFAULT 1,
	required   INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (tenant_id, field_key)
);

CREATE TABLE IF NOT EXISTS cards (
	id            TEXT PRIMARY KEY,
	tenant_id     TEXT NOT NULL,
	fields        TEXT NOT NULL,
	review_status TEXT NOT NULL DEFAULT 'needs_human_review',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_cards_tenant_id ON cards(tenant_id);
CREATE INDEX IF NOT EXISTS idx_cards_review_status ON cards(review_status);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// EnsureFieldConfigs inserts rows not already present; see PostgresStore.
func (s *SQLiteStore) EnsureFieldConfigs(ctx context.Context, tenantID string, defaults []model.TenantFieldConfig) error {
	now := time.Now().UTC()
	for _, cfg := range defaults {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO tenant_field_configs (tenant_id, field_key, enabled, required, created_at) VALUES (?, ?, ?, ?, ?) ON CONFLICT (tenant_id, field_key) DO NOTHING`,
			tenantID, cfg.FieldKey, cfg.Enabled, cfg.Required, now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: ensure field config %s/%s", tenantID, cfg.FieldKey)
		}
	}
	return nil
}

// GetFieldConfigs returns the tenant's field configuration keyed by field key.
func (s *SQLiteStore) GetFieldConfigs(ctx context.Context, tenantID string) (map[string]model.TenantFieldConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tenant_id, field_key, enabled, required, created_at FROM tenant_field_configs WHERE tenant_id = ?`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get field configs for %s", tenantID)
	}
	defer rows.Close()

	configs := make(map[string]model.TenantFieldConfig)
	for rows.Next() {
		var cfg model.TenantFieldConfig
		if err := rows.Scan(&cfg.TenantID, &cfg.FieldKey, &cfg.Enabled, &cfg.Required, &cfg.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan field config")
		}
		configs[cfg.FieldKey] = cfg
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate field configs")
	}
	return configs, nil
}

// SetFieldConfig overwrites a row's enabled/required flags (admin action).
func (s *SQLiteStore) SetFieldConfig(ctx context.Context, cfg model.TenantFieldConfig) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenant_field_configs (tenant_id, field_key, enabled, required, created_at) VALUES (?, ?, ?, ?, ?) ON CONFLICT (tenant_id, field_key) DO UPDATE SET enabled = excluded.enabled, required = excluded.required`,
		cfg.TenantID, cfg.FieldKey, cfg.Enabled, cfg.Required, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set field config %s/%s", cfg.TenantID, cfg.FieldKey)
	}
	return nil
}

// SaveCard upserts a card record by id.
func (s *SQLiteStore) SaveCard(ctx context.Context, card *model.CardRecord) error {
	if card.CardID == "" {
		card.CardID = uuid.NewString()
	}
	now := time.Now().UTC()
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	}
	card.UpdatedAt = now

	fieldsJSON, err := json.Marshal(card.Fields)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal card fields")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cards (id, tenant_id, fields, review_status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO UPDATE SET fields = excluded.fields, review_status = excluded.review_status, updated_at = excluded.updated_at`,
		card.CardID, card.TenantID, string(fieldsJSON), string(card.ReviewStatus), card.CreatedAt, card.UpdatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save card %s", card.CardID)
	}
	return nil
}

// GetCard returns the card with the given id, or nil if it does not exist.
func (s *SQLiteStore) GetCard(ctx context.Context, cardID string) (*model.CardRecord, error) {
	var (
		card       model.CardRecord
		fieldsJSON string
		status     string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, fields, review_status, created_at, updated_at FROM cards WHERE id = ?`,
		cardID,
	).Scan(&card.CardID, &card.TenantID, &fieldsJSON, &status, &card.CreatedAt, &card.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get card %s", cardID)
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &card.Fields); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal fields for card %s", cardID)
	}
	card.ReviewStatus = model.ReviewStatus(status)
	return &card, nil
}

// ListCards returns cards matching the filter, newest first.
func (s *SQLiteStore) ListCards(ctx context.Context, filter CardFilter) ([]model.CardRecord, error) {
	query := `SELECT id, tenant_id, fields, review_status, created_at, updated_at FROM cards`
	var (
		conds []string
		args  []any
	)
	if filter.TenantID != "" {
		conds = append(conds, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.ReviewStatus != "" {
		conds = append(conds, "review_status = ?")
		args = append(args, string(filter.ReviewStatus))
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list cards")
	}
	defer rows.Close()

	var cards []model.CardRecord
	for rows.Next() {
		var (
			card       model.CardRecord
			fieldsJSON string
			status     string
		)
		if err := rows.Scan(&card.CardID, &card.TenantID, &fieldsJSON, &status, &card.CreatedAt, &card.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan card")
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &card.Fields); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal fields for card %s", card.CardID)
		}
		card.ReviewStatus = model.ReviewStatus(status)
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate cards")
	}
	return cards, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
