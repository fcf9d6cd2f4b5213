package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/testctx"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of testctx",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "testctx version %s\n", strings.TrimSpace(testctx.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
