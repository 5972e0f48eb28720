package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/echorelay/echorelay/internal/enhance"
	"github.com/echorelay/echorelay/internal/history"
	"github.com/echorelay/echorelay/internal/logging"
	"github.com/echorelay/echorelay/internal/provider"
	"github.com/echorelay/echorelay/internal/retrieval"
	"github.com/echorelay/echorelay/internal/server"
	"github.com/echorelay/echorelay/internal/tracing"
)

// NewServeCmd constructs the `echorelay serve` command, which starts the
// HTTP server exposing the message, enhancement, and retrieval APIs.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the EchoRelay HTTP server",
		Long: `Start the EchoRelay HTTP server on localhost.

The server exposes a REST API for appending and listing messages,
enhancing text through the configured LLM, and upserting/querying the
retrieval stores. Clients authenticate with a bearer token when
ECHORELAY_API_KEY is set.

Examples:
  echorelay serve
  echorelay serve --port 9090
  MODEL_PROVIDER=openai echorelay serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", envOrDefault("MODEL_PROVIDER", "ollama")))

			store, emb, err := buildStore(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = store.Close() }()

			// Open message history store. ECHORELAY_HISTORY_DB overrides the
			// default path (~/.echorelay/history.db). Set to "disabled" to
			// run without message persistence.
			var historyStore *history.SQLiteStore
			dbPath := os.Getenv("ECHORELAY_HISTORY_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = history.DefaultDBPath()
					if err != nil {
						log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					hs, hsErr := history.Open(dbPath)
					if hsErr != nil {
						log.Warn("history: failed to open store, disabling", slog.Any("error", hsErr))
					} else {
						historyStore = hs
						defer func() { _ = hs.Close() }()
						log.Info("history: store opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("history: disabled via ECHORELAY_HISTORY_DB=disabled")
			}

			enhCfg := &enhance.Config{
				ChatModel: chatModel,
				Retriever: store,
			}
			if historyStore != nil {
				enhCfg.History = historyStore
			}
			enh, err := enhance.New(enhCfg)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise enhancer: %w", err)
			}

			pingers := []server.Pinger{server.NewEmbedderPinger(emb, "embedder")}
			if historyStore != nil {
				pingers = append(pingers, server.NewHistoryPinger(historyStore))
			}
			if qs, isQdrant := store.(*retrieval.QdrantStore); isQdrant {
				pingers = append(pingers, server.NewQdrantPinger(qs.Client()))
			}

			deps := server.Deps{Enhancer: enh}
			if historyStore != nil {
				deps.Messages = historyStore
			}

			srv, err := server.New(store, deps, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("ECHORELAY_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
