package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/testctx/pkg/adapters/file"
)

var validateCmd = &cobra.Command{
	Use:   "validate <metadata-file>",
	Short: "Check test context metadata for consistency",
	Long: `Loads a YAML, TOML or JSON metadata file and reports every problem found:
conflicting extensions, malformed listener declarations, units assigned to more
than one group, duplicate orders and invalid properties.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runValidate(args[0]); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is valid! ✅\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) error {
	doc, err := file.Load(path)
	if err != nil {
		return err
	}
	return doc.Validate()
}
