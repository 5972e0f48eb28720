package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/echorelay/echorelay/internal/enhance"
	"github.com/echorelay/echorelay/internal/logging"
	"github.com/echorelay/echorelay/internal/provider"
)

// NewEnhanceCmd constructs the `echorelay enhance` command, which rewrites
// the given text through the configured LLM and prints the result.
func NewEnhanceCmd() *cobra.Command {
	var instructions string
	var withContext bool

	cmd := &cobra.Command{
		Use:   "enhance [text]",
		Short: "Rewrite text for clarity with the configured LLM",
		Long: `Send text to the configured model provider and print the enhanced
rewrite. With --with-context, related documents from the retrieval stores
are injected as context before rewriting.

Examples:
  echorelay enhance "pls fix teh bug in teh auth flow asap"
  echorelay enhance --instructions "make it formal" "hey, meeting moved to 3"
  echorelay enhance --with-context "summarize the rollout plan"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("enhance: failed to initialise model provider: %w", err)
			}

			cfg := &enhance.Config{ChatModel: chatModel}

			if withContext {
				store, _, storeErr := buildStore(ctx, log)
				if storeErr != nil {
					return fmt.Errorf("enhance: %w", storeErr)
				}
				defer func() { _ = store.Close() }()
				cfg.Retriever = store
			}

			enh, err := enhance.New(cfg)
			if err != nil {
				return fmt.Errorf("enhance: %w", err)
			}

			out, err := enh.EnhanceText(ctx, strings.Join(args, " "), instructions)
			if err != nil {
				return fmt.Errorf("enhance: %w", err)
			}

			fmt.Println(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&instructions, "instructions", "i", "", "Custom enhancement instructions (default: clarity rewrite)")
	cmd.Flags().BoolVar(&withContext, "with-context", false, "Inject related documents from the retrieval stores")

	return cmd
}
