// Command mudb operates on a mudb collection file from the shell: checking
// that a log replays cleanly, compacting it, and validating a YAML config.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/summit/mudb"
	"github.com/summit/mudb/internal/config"
)

type document = map[string]any

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dataDir string
		verbose bool
	)

	root := &cobra.Command{
		Use:           "mudb",
		Short:         "Inspect and maintain mudb collection files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir(), "directory containing the collection file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newCheckCmd(&verbose))
	root.AddCommand(newCompactCmd(&dataDir, &verbose))
	root.AddCommand(newConfigCmd())
	return root
}

func defaultDataDir() string {
	if dir := os.Getenv("MUDB_DATA_DIR"); dir != "" {
		return dir
	}
	return "."
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newCheckCmd is a self-contained smoke test: it never touches --data-dir.
// It creates its own scratch directory, opens a throw-away store inside it,
// and reports success, proving the core open/replay path works without
// requiring the caller to already have a collection on disk.
func newCheckCmd(verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Open a throw-away store in a scratch directory as a smoke test",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(*verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			tmpDir, err := os.MkdirTemp("", "mudb-check-")
			if err != nil {
				return fmt.Errorf("create scratch dir: %w", err)
			}
			defer os.RemoveAll(tmpDir)

			root, err := os.OpenRoot(tmpDir)
			if err != nil {
				return fmt.Errorf("open scratch dir: %w", err)
			}
			defer root.Close()

			store, err := mudb.Open[string](root, "check", mudb.WithLogger[string](logger))
			if err != nil {
				return fmt.Errorf("open scratch store: %w", err)
			}
			defer store.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	return cmd
}

func newCompactCmd(dataDir *string, verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Rewrite a collection file to one record per live identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			filename, err := cmd.Flags().GetString("file")
			if err != nil {
				return err
			}
			logger, err := newLogger(*verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			root, err := os.OpenRoot(*dataDir)
			if err != nil {
				return fmt.Errorf("open data dir: %w", err)
			}
			defer root.Close()

			store, err := mudb.Open[document](root, filename, mudb.WithLogger[document](logger))
			if err != nil {
				return fmt.Errorf("open %s: %w", filename, err)
			}
			before := store.Count()
			if err := store.Compact(); err != nil {
				store.Close() //nolint:errcheck
				return fmt.Errorf("compact %s: %w", filename, err)
			}
			if err := store.Close(); err != nil {
				return fmt.Errorf("close %s: %w", filename, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: compacted, %d live records\n", filename, before)
			return nil
		},
	}
	cmd.Flags().String("file", "", "collection file name within --data-dir")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration file utilities",
	}

	var configPath string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a YAML configuration file against its schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return fmt.Errorf("read config: %w", err)
			}
			cfg, err := config.Parse(data)
			if err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: dataDir=%s file=%s views=%d\n", cfg.DataDir, cfg.File, len(cfg.Views))
			return nil
		},
	}
	validateCmd.Flags().StringVar(&configPath, "config", "mudb.yaml", "path to the YAML config file")
	validateCmd.MarkFlagRequired("config")

	configCmd.AddCommand(validateCmd)
	return configCmd
}
