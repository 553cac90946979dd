package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/profile-enrich/internal/model"
	"github.com/sells-group/profile-enrich/internal/store"
)

var (
	targetsStatus string
	targetsLimit  int
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Manage the batch enrichment queue",
}

var targetsAddCmd = &cobra.Command{
	Use:   "add <url>...",
	Short: "Queue profile URLs for batch enrichment",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		for _, raw := range args {
			url, err := model.ValidateProfileURL(raw)
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", raw, err)
				continue
			}
			tgt, created, err := st.CreateTarget(ctx, url)
			if err != nil {
				return err
			}
			if created {
				fmt.Printf("queued %s (%s)\n", tgt.ProfileURL, tgt.ID)
			} else {
				fmt.Printf("already queued %s (%s, %s)\n", tgt.ProfileURL, tgt.ID, tgt.Status)
			}
		}
		return nil
	},
}

var targetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status := model.TargetStatus(targetsStatus)
		if status != "" && !model.ValidTargetStatus(status) {
			return fmt.Errorf("unknown status %q", targetsStatus)
		}

		targets, err := st.ListTargets(ctx, store.TargetFilter{Status: status, Limit: targetsLimit})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(targets)
	},
}

func init() {
	targetsListCmd.Flags().StringVar(&targetsStatus, "status", "", "filter by status (pending|running|succeeded|failed)")
	targetsListCmd.Flags().IntVar(&targetsLimit, "limit", 100, "max targets to list")
	targetsCmd.AddCommand(targetsAddCmd, targetsListCmd)
	rootCmd.AddCommand(targetsCmd)
}
