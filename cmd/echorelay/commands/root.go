// Package commands defines all Cobra CLI commands for the echorelay binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/echorelay/echorelay/internal/audit"
	"github.com/echorelay/echorelay/internal/config"
	"github.com/echorelay/echorelay/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "echorelay",
		Short: "EchoRelay — message capture, enhancement, and semantic retrieval",
		Long: `EchoRelay is a local-first service that captures messages, rewrites them
for clarity with an LLM, and indexes them for semantic retrieval.

It stores message history in SQLite, embeds documents through a pluggable
embedding backend, and searches one or more retrieval stores (SQLite,
in-memory, or Qdrant) by cosine similarity.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.echorelay/config.yaml).
See 'echorelay --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A local .env is a convenience for development; absence is fine.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.echorelay/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewIngestCmd(),
		NewQueryCmd(),
		NewStoresCmd(),
		NewEnhanceCmd(),
		NewVersionCmd(),
	)

	return root
}
