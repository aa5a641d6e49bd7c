package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/bhvbhushan/card-capture-api/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock implements it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"ensure_field_config": `INSERT INTO tenant_field_configs (tenant_id, field_key, enabled, required, created_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (tenant_id, field_key) DO NOTHING`,
	"get_field_configs":   `SELECT tenant_id, field_key, enabled, required, created_at FROM tenant_field_configs WHERE tenant_id = $1`,
	"set_field_config":    `INSERT INTO tenant_field_configs (tenant_id, field_key, enabled, required, created_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (tenant_id, field_key) DO UPDATE SET enabled = EXCLUDED.enabled, required = EXCLUDED.required`,
	"save_card":           `INSERT INTO cards (id, tenant_id, fields, review_status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO UPDATE SET fields = EXCLUDED.fields, review_status = EXCLUDED.review_status, updated_at = EXCLUDED.updated_at`,
	"get_card":            `SELECT id, tenant_id, fields, review_status, created_at, updated_at FROM cards WHERE id = $1`,
}

// NewPostgresWithPool creates a PostgresStore on an existing pool.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS tenant_field_configs (
	tenant_id  TEXT NOT NULL,
	field_key  TEXT NOT NULL,
	enabled    BOOLEAN NOT NULL DEFAULT true,
	required   BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (tenant_id, field_key)
);

CREATE TABLE IF NOT EXISTS cards (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	tenant_id     TEXT NOT NULL,
	fields        JSONB NOT NULL,
	review_status TEXT NOT NULL DEFAULT 'needs_human_review',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_cards_tenant_id ON cards(tenant_id);
CREATE INDEX IF NOT EXISTS idx_cards_review_status ON cards(review_status);
`

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// EnsureFieldConfigs inserts the given rows, skipping any (tenant, key) that
// already exists. ON CONFLICT DO NOTHING makes the call idempotent and safe
// under concurrent invocation: two jobs discovering the same new field
// converge to the single row inserted first.
func (s *PostgresStore) EnsureFieldConfigs(ctx context.Context, tenantID string, defaults []model.TenantFieldConfig) error {
	now := time.Now().UTC()
	for _, cfg := range defaults {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO tenant_field_configs (tenant_id, field_key, enabled, required, created_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (tenant_id, field_key) DO NOTHING`,
			tenantID, cfg.FieldKey, cfg.Enabled, cfg.Required, now,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: ensure field config %s/%s", tenantID, cfg.FieldKey)
		}
	}
	return nil
}

// GetFieldConfigs returns the tenant's field configuration keyed by field key.
func (s *PostgresStore) GetFieldConfigs(ctx context.Context, tenantID string) (map[string]model.TenantFieldConfig, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT tenant_id, field_key, enabled, required, created_at FROM tenant_field_configs WHERE tenant_id = $1`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get field configs for %s", tenantID)
	}
	defer rows.Close()

	configs := make(map[string]model.TenantFieldConfig)
	for rows.Next() {
		var cfg model.TenantFieldConfig
		if err := rows.Scan(&cfg.TenantID, &cfg.FieldKey, &cfg.Enabled, &cfg.Required, &cfg.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan field config")
		}
		configs[cfg.FieldKey] = cfg
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate field configs")
	}
	return configs, nil
}

// SetFieldConfig overwrites a row's enabled/required flags (admin action).
func (s *PostgresStore) SetFieldConfig(ctx context.Context, cfg model.TenantFieldConfig) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tenant_field_configs (tenant_id, field_key, enabled, required, created_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (tenant_id, field_key) DO UPDATE SET enabled = EXCLUDED.enabled, required = EXCLUDED.required`,
		cfg.TenantID, cfg.FieldKey, cfg.Enabled, cfg.Required, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set field config %s/%s", cfg.TenantID, cfg.FieldKey)
	}
	return nil
}

// SaveCard upserts a card record by id.
func (s *PostgresStore) SaveCard(ctx context.Context, card *model.CardRecord) error {
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
		return eris.Wrap(err, "postgres: marshal card fields")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO cards (id, tenant_id, fields, review_status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO UPDATE SET fields = EXCLUDED.fields, review_status = EXCLUDED.review_status, updated_at = EXCLUDED.updated_at`,
		card.CardID, card.TenantID, fieldsJSON, string(card.ReviewStatus), card.CreatedAt, card.UpdatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save card %s", card.CardID)
	}
	return nil
}

// GetCard returns the card with the given id, or nil if it does not exist.
func (s *PostgresStore) GetCard(ctx context.Context, cardID string) (*model.CardRecord, error) {
	var (
		card       model.CardRecord
		fieldsJSON []byte
		status     string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, fields, review_status, created_at, updated_at FROM cards WHERE id = $1`,
		cardID,
	).Scan(&card.CardID, &card.TenantID, &fieldsJSON, &status, &card.CreatedAt, &card.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get card %s", cardID)
	}
	if err := json.Unmarshal(fieldsJSON, &card.Fields); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal fields for card %s", cardID)
	}
	card.ReviewStatus = model.ReviewStatus(status)
	return &card, nil
}

// ListCards returns cards matching the filter, newest first.
func (s *PostgresStore) ListCards(ctx context.Context, filter CardFilter) ([]model.CardRecord, error) {
	query := `SELECT id, tenant_id, fields, review_status, created_at, updated_at FROM cards`
	var (
		conds []string
		args  []any
	)
	if filter.TenantID != "" {
		args = append(args, filter.TenantID)
		conds = append(conds, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if filter.ReviewStatus != "" {
		args = append(args, string(filter.ReviewStatus))
		conds = append(conds, fmt.Sprintf("review_status = $%d", len(args)))
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
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list cards")
	}
	defer rows.Close()

	var cards []model.CardRecord
	for rows.Next() {
		var (
			card       model.CardRecord
			fieldsJSON []byte
			status     string
		)
		if err := rows.Scan(&card.CardID, &card.TenantID, &fieldsJSON, &status, &card.CreatedAt, &card.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan card")
		}
		if err := json.Unmarshal(fieldsJSON, &card.Fields); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal fields for card %s", card.CardID)
		}
		card.ReviewStatus = model.ReviewStatus(status)
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate cards")
	}
	return cards, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
