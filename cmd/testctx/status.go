package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/testctx/internal/presentation/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recorded test context snapshots",
	Long:  `Lists the last snapshot recorded for every group: whether its context is running, how many executions it tracks, restarts and units waiting for a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		snaps, err := loadSnapshots(cmd.Context(), store)
		if err != nil {
			return err
		}
		if banner, _ := cmd.Flags().GetBool("banner"); banner {
			tui.PrintBanner(cmd.OutOrStdout())
		}
		return tui.RenderStatus(cmd.OutOrStdout(), snaps)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("banner", false, "Print the banner first")
}
