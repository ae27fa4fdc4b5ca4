package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"product-meta-viewer/internal/config"
	"product-meta-viewer/internal/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type rootOptions struct {
	envFile    string
	fixture    string
	jsonOutput bool
}

// NewRootCmd builds the metaviewer command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "metaviewer",
		Short: "Product meta viewer - inspect and compare catalog products",
		Long: `metaviewer reports every attribute of a catalog product, or compares two
products side by side with differing fields highlighted.

Run "metaviewer serve" for the admin page and APIs, or use "inspect" and
"search" directly against the catalog.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Dotenv file to load before reading the environment")
	cmd.PersistentFlags().StringVar(&opts.fixture, "fixture", "", "Serve a YAML catalog snapshot instead of Postgres")
	cmd.PersistentFlags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output in JSON format")

	cmd.AddCommand(newServeCmd(opts), newInspectCmd(opts), newSearchCmd(opts), newTokenCmd(opts))
	return cmd
}

func (o *rootOptions) load() error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", o.envFile, err)
		}
	}
	if o.fixture != "" {
		if err := os.Setenv("CATALOG_FIXTURE", o.fixture); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.LogLevel, cfg.AppEnv); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	return nil
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		if jsonFlag, _ := cmd.PersistentFlags().GetBool("json"); jsonFlag {
			_ = printJSON(os.Stdout, map[string]string{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
