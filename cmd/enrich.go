package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/profile-enrich/internal/enrich"
)

var enrichURL string

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a single profile URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Service.Enrich(ctx, enrichURL)
		if err != nil {
			if kind := enrich.KindOf(err); kind != enrich.FailureInternal {
				return eris.Errorf("%s: %s", kind, enrich.FailureMessage(err))
			}
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichURL, "url", "", "profile URL (linkedin.com/in/<handle>)")
	enrichCmd.MarkFlagRequired("url") //nolint:errcheck
	rootCmd.AddCommand(enrichCmd)
}
