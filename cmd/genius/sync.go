package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/genius/internal/config"
	"github.com/at-ishikawa/genius/internal/datasync"
)

func newSyncCommand() *cobra.Command {
	var (
		owner  string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Upload content that was only saved to the local cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := resolveOwner(owner)
			if err != nil {
				return err
			}
			return withDependencies(func(_ *config.Config, deps *dependencies) error {
				if dryRun {
					fmt.Fprintln(cmd.OutOrStdout(), "[DRY RUN] No changes will be written")
				}
				syncer := datasync.NewSyncer(deps.remote, deps.cache, cmd.OutOrStdout())
				result, err := syncer.SyncOwner(cmd.Context(), ownerID, datasync.SyncOptions{DryRun: dryRun})
				if err != nil {
					return fmt.Errorf("SyncOwner(%s) > %w", ownerID, err)
				}
				printSyncResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner id (defaults to "+ownerEnv+")")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be uploaded without writing")
	return cmd
}

func printSyncResult(w io.Writer, result *datasync.SyncResult) {
	fmt.Fprintf(w, "\nsynced: %d, skipped: %d, missing: %d, invalid: %d, failed: %d\n",
		result.Synced, result.Skipped, result.Missing, result.Invalid, result.Failed)
}
