package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/echorelay/echorelay/internal/enhance"
	"github.com/echorelay/echorelay/internal/history"
	"github.com/echorelay/echorelay/internal/retrieval"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry is the Prometheus registry metrics are registered against.
	// If nil, a fresh registry is created. GET /metrics serves this registry.
	Registry *prometheus.Registry
}

// messageStore is the subset of history.MessageStore the handlers call.
// *history.SQLiteStore satisfies it; tests inject a fake.
type messageStore interface {
	Append(ctx context.Context, content string) (int64, error)
	Get(ctx context.Context, id int64) (history.Message, error)
	Recent(ctx context.Context, n int) ([]history.Message, error)
	EnhancedFor(ctx context.Context, sourceID int64, limit int) ([]history.Enhanced, error)
}

// enhancer is the interface the enhancement handlers call.
// *enhance.Enhancer satisfies it; tests inject a fake.
type enhancer interface {
	EnhanceText(ctx context.Context, text, instructions string) (string, error)
	EnhanceMessage(ctx context.Context, sourceID int64, instructions string) (enhance.MessageResult, error)
	SummarizeRecent(ctx context.Context, limit int, style string) (enhance.Summary, error)
}

// Server is the HTTP server that exposes the relay's store, history, and
// enhancement operations.
type Server struct {
	// store is the retrieval store behind the /api/rag endpoints.
	store retrieval.Store
	// messages is the message history behind the /api/messages endpoints.
	// May be nil when history is disabled; the endpoints then return 503.
	messages messageStore
	// enhancer drives the /api/enhance endpoints. May be nil when no chat
	// model is configured; the endpoints then return 503.
	enhancer enhancer
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// upsertRequest is the JSON body for POST /api/rag/upsert.
type upsertRequest struct {
	// Source is a free-form label recorded with the document.
	Source string `json:"source"`
	// Content is the document text to store and embed.
	Content string `json:"content"`
	// Store routes the document to a named member of a composite store.
	Store string `json:"store,omitempty"`
}

// upsertResponse is the JSON response for POST /api/rag/upsert.
type upsertResponse struct {
	// ID is the identifier assigned to the stored document.
	ID string `json:"id"`
}

// queryRequest is the JSON body for POST /api/rag/query.
type queryRequest struct {
	// Text is the query text to embed and match against stored documents.
	Text string `json:"text"`
	// Limit caps the number of results. Zero means the default limit.
	Limit int `json:"limit,omitempty"`
	// Stores restricts a composite query to the named members.
	Stores []string `json:"stores,omitempty"`
}

// queryResponse is the JSON response for POST /api/rag/query.
type queryResponse struct {
	// Results are the matched documents, best first.
	Results []retrieval.Result `json:"results"`
}

// storesResponse is the JSON response for GET /api/rag/stores.
type storesResponse struct {
	// Name is the label of the top-level store.
	Name string `json:"name"`
	// Names lists all addressable store names, leaves included.
	Names []string `json:"names"`
}

// messageRequest is the JSON body for POST /api/messages.
type messageRequest struct {
	// Content is the message text to persist.
	Content string `json:"content"`
}

// messageResponse is the JSON response for POST /api/messages.
type messageResponse struct {
	// ID is the identifier assigned to the stored message.
	ID int64 `json:"id"`
}

// messagesResponse is the JSON response for GET /api/messages.
type messagesResponse struct {
	// Messages are the most recent messages, newest first.
	Messages []history.Message `json:"messages"`
}

// enhancedResponse is the JSON response for GET /api/messages/{id}/enhanced.
type enhancedResponse struct {
	// Enhanced are the stored enhancements, newest first.
	Enhanced []history.Enhanced `json:"enhanced"`
}

// enhanceTextRequest is the JSON body for POST /api/enhance.
type enhanceTextRequest struct {
	// Text is the text to rewrite.
	Text string `json:"text"`
	// Instructions overrides the default rewrite prompt.
	Instructions string `json:"instructions,omitempty"`
}

// enhanceTextResponse is the JSON response for POST /api/enhance.
type enhanceTextResponse struct {
	// Original echoes the input text.
	Original string `json:"original"`
	// Enhanced is the rewritten text.
	Enhanced string `json:"enhanced"`
}

// enhanceMessageRequest is the JSON body for POST /api/messages/{id}/enhance.
type enhanceMessageRequest struct {
	// Instructions overrides the default rewrite prompt.
	Instructions string `json:"instructions,omitempty"`
}

// summarizeRequest is the JSON body for POST /api/enhance/recent.
type summarizeRequest struct {
	// Limit is the number of recent messages to summarize. Zero means 5.
	Limit int `json:"limit,omitempty"`
	// Style overrides the default summary prompt.
	Style string `json:"style,omitempty"`
}

// errorResponse is the JSON body for all error statuses.
type errorResponse struct {
	// Error is the human-readable failure reason.
	Error string `json:"error"`
}
