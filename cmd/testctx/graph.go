package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/testctx/internal/presentation/graph"
	"github.com/aretw0/testctx/pkg/adapters/file"
	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/ports"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <metadata-file>",
	Short: "Export the group layout visualization",
	Long: `Reads a metadata file and outputs a Mermaid diagram (graph TD) of its groups,
units, reload policies and listener declarations. With --overlay the recorded
snapshots highlight running groups and units waiting for a restart.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := file.Load(args[0])
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if withOverlay, _ := cmd.Flags().GetBool("overlay"); withOverlay {
			store, closeStore, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore()
			snaps, err := loadSnapshots(cmd.Context(), store)
			if err != nil {
				return err
			}
			overlay = graph.OverlayFrom(snaps)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(doc, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("overlay", false, "Highlight state from recorded snapshots")
}

// loadSnapshots reads every recorded group, skipping groups removed since List.
func loadSnapshots(ctx context.Context, store ports.SnapshotStore) ([]domain.Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	groups, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	snaps := make([]domain.Snapshot, 0, len(groups))
	for _, g := range groups {
		snap, err := store.Load(ctx, g)
		if err != nil {
			if errors.Is(err, domain.ErrSnapshotNotFound) {
				continue
			}
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}
