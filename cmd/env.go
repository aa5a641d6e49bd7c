package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bhvbhushan/card-capture-api/internal/pipeline"
	"github.com/bhvbhushan/card-capture-api/internal/store"
	"github.com/bhvbhushan/card-capture-api/pkg/gemini"
)

// Env bundles the initialized dependencies shared by the commands.
type Env struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Gemini   gemini.Client
}

// Close releases held resources.
func (e *Env) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("closing store", zap.Error(err))
		}
	}
}

// newStore opens the configured store driver.
func newStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initEnv opens the store and builds the pipeline. The Gemini client is only
// constructed when an API key is configured; commands that read annotations
// from files work without one.
func initEnv(ctx context.Context) (*Env, error) {
	st, err := newStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	env := &Env{
		Store:    st,
		Pipeline: pipeline.New(st, cfg.Pipeline),
	}

	if cfg.Gemini.APIKey != "" {
		client, err := gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model,
			gemini.WithRateLimit(cfg.Gemini.RequestsPerSec),
		)
		if err != nil {
			st.Close()
			return nil, eris.Wrap(err, "init gemini client")
		}
		env.Gemini = client
	}

	return env, nil
}

// toRawFields converts provider annotations to pipeline input.
func toRawFields(annotations map[string]gemini.FieldAnnotation) map[string]pipeline.RawField {
	raw := make(map[string]pipeline.RawField, len(annotations))
	for key, a := range annotations {
		raw[key] = pipeline.RawField{
			Value:         a.Value,
			OriginalValue: a.OriginalValue,
			EditMade:      a.EditMade,
			EditType:      a.EditType,
			TextClarity:   a.TextClarity,
			Certainty:     a.Certainty,
			Notes:         a.Notes,
		}
	}
	return raw
}
