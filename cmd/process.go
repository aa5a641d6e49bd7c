package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bhvbhushan/card-capture-api/internal/model"
	"github.com/bhvbhushan/card-capture-api/internal/pipeline"
)

var (
	processTenant string
	processCardID string
)

var processCmd = &cobra.Command{
	Use:   "process [file]",
	Short: "Process one card through the scoring pipeline",
	Long:  "Processes a card from a JSON annotations file, or from a card image when a Gemini API key is configured.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if processTenant == "" {
			return eris.New("--tenant is required")
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		record, err := processFile(cmd.Context(), env, processTenant, processCardID, args[0])
		if err != nil {
			return err
		}

		view, err := env.Pipeline.ReviewView(cmd.Context(), record)
		if err != nil {
			return err
		}

		out := struct {
			CardID       string              `json:"card_id"`
			ReviewStatus model.ReviewStatus  `json:"review_status"`
			Fields       []model.ReviewField `json:"fields"`
		}{record.CardID, record.ReviewStatus, view}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// processFile runs one card file through the pipeline. JSON files are read as
// raw provider annotations; anything else is treated as a card image and sent
// through the Gemini client.
func processFile(ctx context.Context, env *Env, tenantID, cardID, path string) (*model.CardRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	var raw map[string]pipeline.RawField
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, eris.Wrapf(err, "parse annotations %s", path)
		}
	} else {
		if env.Gemini == nil {
			return nil, eris.New("processing images requires a configured Gemini API key")
		}
		annotations, err := env.Gemini.ExtractCard(ctx, data, http.DetectContentType(data))
		if err != nil {
			return nil, eris.Wrapf(err, "extract %s", path)
		}
		raw = toRawFields(annotations)
	}

	record, err := env.Pipeline.Process(ctx, tenantID, cardID, raw)
	if err != nil {
		return nil, err
	}
	zap.L().Info("card processed",
		zap.String("file", path),
		zap.String("card_id", record.CardID),
		zap.String("review_status", string(record.ReviewStatus)),
	)
	return record, nil
}

func init() {
	processCmd.Flags().StringVar(&processTenant, "tenant", "", "tenant id (required)")
	processCmd.Flags().StringVar(&processCardID, "card-id", "", "card id (generated when empty)")
	rootCmd.AddCommand(processCmd)
}
