package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var batchLimit int

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run one sequential pass over pending targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		limit := batchLimit
		if limit <= 0 {
			limit = cfg.Batch.Limit
		}

		stats := env.Runner.RunPass(ctx, limit)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max targets per pass (default from config)")
	rootCmd.AddCommand(batchCmd)
}
