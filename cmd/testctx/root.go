package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/testctx/internal/logging"
	"github.com/aretw0/testctx/pkg/adapters/file"
	"github.com/aretw0/testctx/pkg/adapters/redis"
	"github.com/aretw0/testctx/pkg/ports"
)

var rootCmd = &cobra.Command{
	Use:   "testctx",
	Short: "testctx inspects shared test contexts",
	Long: `testctx validates test context metadata, renders it as a graph and reports
the snapshots recorded by test runs, from a directory or a Redis instance.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".testctx/snapshots", "Directory holding recorded snapshots")
	rootCmd.PersistentFlags().String("redis", "", "Redis address holding recorded snapshots (overrides --dir)")
	rootCmd.PersistentFlags().String("redis-password", "", "Redis password")
	rootCmd.PersistentFlags().Int("redis-db", 0, "Redis database")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	raw, _ := cmd.Flags().GetString("log-level")
	level, err := logging.ParseLevel(raw)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

// openStore picks the snapshot backend from the persistent flags. The returned
// func releases it.
func openStore(cmd *cobra.Command) (ports.SnapshotStore, func() error, error) {
	addr, _ := cmd.Flags().GetString("redis")
	if addr != "" {
		password, _ := cmd.Flags().GetString("redis-password")
		db, _ := cmd.Flags().GetInt("redis-db")
		store := redis.New(addr, password, db)
		return store, store.Close, nil
	}
	dir, _ := cmd.Flags().GetString("dir")
	return file.NewStore(dir), func() error { return nil }, nil
}
