package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/echorelay/echorelay/internal/logging"
	"github.com/echorelay/echorelay/internal/retrieval"
)

// NewQueryCmd constructs the `echorelay query` command, which searches the
// retrieval stores for documents similar to the given text.
func NewQueryCmd() *cobra.Command {
	var limit int
	var stores []string

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Search the retrieval stores by semantic similarity",
		Long: `Embed the given text and scan the configured retrieval stores for the
most similar documents, ranked by cosine similarity.

Examples:
  echorelay query "how do I rotate the API key?"
  echorelay query --limit 10 "deployment checklist"
  echorelay query --store scratch "meeting notes from last week"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			store, _, err := buildStore(ctx, log)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			defer func() { _ = store.Close() }()

			results, err := store.Query(ctx, retrieval.QueryRequest{
				Text:   args[0],
				Limit:  limit,
				Stores: stores,
			})
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			if len(results) == 0 {
				fmt.Println("no matching documents")
				return nil
			}

			for i, res := range results {
				fmt.Printf("%d. [%s] score=%.3f source=%s\n%s\n\n",
					i+1, res.ID, res.Score, res.Source, res.Content)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", retrieval.DefaultLimit, "Maximum number of results")
	cmd.Flags().StringArrayVar(&stores, "store", nil, "Restrict the scan to a named store (repeatable)")

	return cmd
}
