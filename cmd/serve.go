package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bhvbhushan/card-capture-api/internal/model"
	"github.com/bhvbhushan/card-capture-api/internal/pipeline"
	"github.com/bhvbhushan/card-capture-api/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start webhook server for card processing requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var inflight sync.WaitGroup
		port := resolvePort(servePort, cfg.Server.Port)
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: buildMux(ctx, env, &inflight),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		// Accepted webhooks process detached from their requests; the store
		// stays open until the last one lands.
		inflight.Wait()
		return nil
	},
}

// resolvePort picks the flag value over the configured one.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort > 0 {
		return flagPort
	}
	if cfgPort > 0 {
		return cfgPort
	}
	return 8080
}

// buildMux constructs the webhook server routes. Processing runs detached
// from the request under the server's base context; the caller polls the
// card review endpoint for the result. Detached work registers with inflight
// so shutdown can wait for it before the store closes.
func buildMux(ctx context.Context, env *Env, inflight *sync.WaitGroup) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /webhook/process", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TenantID string                       `json:"tenant_id"`
			CardID   string                       `json:"card_id"`
			Fields   map[string]pipeline.RawField `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.TenantID == "" || len(req.Fields) == 0 {
			http.Error(w, `{"error":"tenant_id and fields are required"}`, http.StatusBadRequest)
			return
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			record, err := env.Pipeline.Process(ctx, req.TenantID, req.CardID, req.Fields)
			if err != nil {
				zap.L().Error("webhook processing failed",
					zap.String("tenant_id", req.TenantID),
					zap.String("card_id", req.CardID),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("webhook processing complete",
				zap.String("card_id", record.CardID),
				zap.String("review_status", string(record.ReviewStatus)),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":    "accepted",
			"tenant_id": req.TenantID,
		})
	})

	mux.HandleFunc("GET /cards", func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.URL.Query().Get("tenant")
		if tenantID == "" {
			http.Error(w, `{"error":"tenant is required"}`, http.StatusBadRequest)
			return
		}
		filter := store.CardFilter{
			TenantID:     tenantID,
			ReviewStatus: model.ReviewStatus(r.URL.Query().Get("status")),
			Limit:        100,
		}
		cards, err := env.Store.ListCards(r.Context(), filter)
		if err != nil {
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		type cardSummary struct {
			CardID       string             `json:"card_id"`
			ReviewStatus model.ReviewStatus `json:"review_status"`
			NeedsReview  []string           `json:"needs_review,omitempty"`
			UpdatedAt    string             `json:"updated_at"`
		}
		summaries := make([]cardSummary, 0, len(cards))
		for i := range cards {
			summaries = append(summaries, cardSummary{
				CardID:       cards[i].CardID,
				ReviewStatus: cards[i].ReviewStatus,
				NeedsReview:  cards[i].FieldsNeedingReview(),
				UpdatedAt:    cards[i].UpdatedAt.Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, summaries)
	})

	mux.HandleFunc("GET /cards/{id}/review", func(w http.ResponseWriter, r *http.Request) {
		record, err := env.Store.GetCard(r.Context(), r.PathValue("id"))
		if err != nil {
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		if record == nil {
			http.Error(w, `{"error":"card not found"}`, http.StatusNotFound)
			return
		}
		view, err := env.Pipeline.ReviewView(r.Context(), record)
		if err != nil {
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"card_id":       record.CardID,
			"review_status": record.ReviewStatus,
			"fields":        view,
		})
	})

	mux.HandleFunc("GET /fields", func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.URL.Query().Get("tenant")
		if tenantID == "" {
			http.Error(w, `{"error":"tenant is required"}`, http.StatusBadRequest)
			return
		}
		configs, err := env.Store.GetFieldConfigs(r.Context(), tenantID)
		if err != nil {
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, configs)
	})

	mux.HandleFunc("PUT /fields", func(w http.ResponseWriter, r *http.Request) {
		var req model.TenantFieldConfig
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.TenantID == "" || !model.ValidFieldKey(req.FieldKey) {
			http.Error(w, `{"error":"tenant_id and a valid field_key are required"}`, http.StatusBadRequest)
			return
		}
		if err := env.Store.SetFieldConfig(r.Context(), req); err != nil {
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, req)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
