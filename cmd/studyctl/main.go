// Command studyctl inspects and prepares a StudySpot store from the shell.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"studyspot-backend/internal/config"
	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/store"
)

var (
	noColor     bool
	flagBackend string
	flagPrefix  string
	flagPath    string
)

var rootCmd = &cobra.Command{
	Use:           "studyctl",
	Short:         "Operator tool for the StudySpot store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "store backend (memory, sqlite, redis, postgres); defaults to STORE_BACKEND")
	rootCmd.PersistentFlags().StringVar(&flagPrefix, "prefix", "", "key prefix; defaults to STORE_PREFIX")
	rootCmd.PersistentFlags().StringVar(&flagPath, "path", "", "sqlite data directory; defaults to STORE_PATH")

	rootCmd.AddCommand(storeCmd, searchCmd, seedCmd, adminCmd)
}

// openStore builds the store selected by flags and environment. Tests replace it.
var openStore = func(ctx context.Context) (*store.Store, error) {
	cfg := config.Load()
	opts := store.Options{
		Backend:     cfg.StoreBackend,
		Prefix:      cfg.StorePrefix,
		Path:        cfg.StorePath,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		Timeout:     cfg.StoreTimeout,
	}
	if flagBackend != "" {
		opts.Backend = flagBackend
	}
	if flagPrefix != "" {
		opts.Prefix = flagPrefix
	}
	if flagPath != "" {
		opts.Path = flagPath
	}

	st, err := store.Open(ctx, opts, logger.Nop())
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", opts.Backend, err)
	}
	return st, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, "%v", err)
		os.Exit(1)
	}
}
