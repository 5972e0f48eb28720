package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/echorelay/echorelay/internal/logging"
)

// NewStoresCmd constructs the `echorelay stores` command, which prints the
// configured retrieval store topology.
func NewStoresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stores",
		Short: "List the configured retrieval stores",
		Long: `Resolve the retrieval store topology from RAG_SOURCES (or the default
SQLite store) and print the member store names. The first listed store is
the default upsert target.

Examples:
  echorelay stores
  RAG_SOURCES='[{"type":"memory","name":"scratch"}]' echorelay stores`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			store, _, err := buildStore(ctx, log)
			if err != nil {
				return fmt.Errorf("stores: %w", err)
			}
			defer func() { _ = store.Close() }()

			fmt.Printf("topology: %s\n", store.Name())
			for i, name := range store.Names() {
				marker := " "
				if i == 0 {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, name)
			}
			return nil
		},
	}
}
