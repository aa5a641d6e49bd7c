package main

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bhvbhushan/card-capture-api/internal/model"
)

var (
	fieldsTenant   string
	fieldsKey      string
	fieldsEnabled  bool
	fieldsRequired bool
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Manage tenant field configuration",
}

var fieldsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's field configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if fieldsTenant == "" {
			return eris.New("--tenant is required")
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		configs, err := env.Store.GetFieldConfigs(cmd.Context(), fieldsTenant)
		if err != nil {
			return err
		}

		rows := make([]model.TenantFieldConfig, 0, len(configs))
		for _, cfg := range configs {
			rows = append(rows, cfg)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].FieldKey < rows[j].FieldKey })

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	},
}

var fieldsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set enabled/required flags for a tenant field",
	RunE: func(cmd *cobra.Command, args []string) error {
		if fieldsTenant == "" || fieldsKey == "" {
			return eris.New("--tenant and --key are required")
		}
		if !model.ValidFieldKey(fieldsKey) {
			return eris.Errorf("invalid field key %q", fieldsKey)
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		cfg := model.TenantFieldConfig{
			TenantID: fieldsTenant,
			FieldKey: fieldsKey,
			Enabled:  fieldsEnabled,
			Required: fieldsRequired,
		}
		if err := env.Store.SetFieldConfig(cmd.Context(), cfg); err != nil {
			return err
		}

		zap.L().Info("field config updated",
			zap.String("tenant_id", fieldsTenant),
			zap.String("field_key", fieldsKey),
			zap.Bool("enabled", fieldsEnabled),
			zap.Bool("required", fieldsRequired),
		)
		return nil
	},
}

func init() {
	fieldsCmd.PersistentFlags().StringVar(&fieldsTenant, "tenant", "", "tenant id (required)")
	fieldsSetCmd.Flags().StringVar(&fieldsKey, "key", "", "field key (required)")
	fieldsSetCmd.Flags().BoolVar(&fieldsEnabled, "enabled", true, "show the field in the review UI")
	fieldsSetCmd.Flags().BoolVar(&fieldsRequired, "required", false, "flag empty or low-confidence values for review")
	fieldsCmd.AddCommand(fieldsListCmd)
	fieldsCmd.AddCommand(fieldsSetCmd)
	rootCmd.AddCommand(fieldsCmd)
}
