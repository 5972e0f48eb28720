// Package enhance rewrites stored relay messages with an LLM. It covers the
// three enhancement flows: rewriting free-form text, rewriting a stored
// message and persisting the result alongside its source, and summarizing the
// most recent messages into a readable digest. When a retrieval store is
// configured, similar prior documents are injected as context so rewrites stay
// consistent with earlier traffic.
package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/echorelay/echorelay/internal/budget"
	"github.com/echorelay/echorelay/internal/history"
	"github.com/echorelay/echorelay/internal/logging"
	"github.com/echorelay/echorelay/internal/retrieval"
)

// defaultInstructions is the system prompt used when the caller supplies none.
const defaultInstructions = "Rewrite the user's text to be clearer, concise, and readable without changing meaning."

// defaultSummaryStyle is the system prompt for SummarizeRecent when the
// caller supplies no style.
const defaultSummaryStyle = "Summarize and clarify each message as bullet points, preserving intent." +
	" Return a concise section titled 'Enhanced Messages' followed by bullets."

// Config holds the dependencies required to construct an Enhancer.
type Config struct {
	// ChatModel is the LLM backend constructed by the provider factory.
	ChatModel model.ChatModel //nolint:staticcheck // SA1019: model.ChatModel deprecated upstream; migration tracked separately

	// History is the message store used by EnhanceMessage and SummarizeRecent.
	// May be nil if only EnhanceText is used.
	History history.MessageStore

	// Retriever is the optional document store queried for context similar to
	// the text being enhanced. May be nil.
	Retriever retrieval.Store

	// RetrievalLimit controls how many retrieved documents are injected per
	// call. Defaults to retrieval.DefaultLimit if zero.
	RetrievalLimit int

	// MaxContextTokens is the estimated token budget for the full input
	// (instructions + retrieval context + text). Retrieval context is dropped
	// if it would not fit. Defaults to budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int
}

// Enhancer runs enhancement flows against a chat model, with optional
// persistence and retrieval context.
type Enhancer struct {
	chatModel model.ChatModel //nolint:staticcheck // SA1019: model.ChatModel deprecated upstream; migration tracked separately
	history   history.MessageStore
	retriever retrieval.Store

	retrievalLimit   int
	maxContextTokens int
}

// New constructs an Enhancer from the provided Config.
func New(cfg *Config) (*Enhancer, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("enhance: ChatModel must not be nil")
	}

	limit := cfg.RetrievalLimit
	if limit <= 0 {
		limit = retrieval.DefaultLimit
	}

	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}

	return &Enhancer{
		chatModel:        cfg.ChatModel,
		history:          cfg.History,
		retriever:        cfg.Retriever,
		retrievalLimit:   limit,
		maxContextTokens: maxCtx,
	}, nil
}

// MessageResult is the outcome of enhancing a stored message.
type MessageResult struct {
	// SourceID is the id of the original message.
	SourceID int64 `json:"source_id"`
	// EnhancedID is the id of the persisted enhanced record.
	EnhancedID int64 `json:"enhanced_id"`
	// Content is the enhanced text.
	Content string `json:"enhanced_content"`
}

// Summary is the outcome of summarizing recent messages.
type Summary struct {
	// Messages are the source messages, newest first.
	Messages []history.Message `json:"items"`
	// Content is the model-produced digest.
	Content string `json:"enhanced"`
}

// EnhanceText rewrites text with the chat model and returns the result.
// instructions overrides the default rewrite prompt when non-empty.
func (e *Enhancer) EnhanceText(ctx context.Context, text, instructions string) (string, error) {
	messages := e.buildMessages(ctx, text, instructions)

	out, err := e.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("enhance: generate failed: %w", err)
	}
	return strings.TrimSpace(out.Content), nil
}

// EnhanceMessage loads a stored message, rewrites it, and persists the result
// linked to its source. Returns history.ErrNotFound (wrapped) if the source
// message does not exist.
func (e *Enhancer) EnhanceMessage(ctx context.Context, sourceID int64, instructions string) (MessageResult, error) {
	if e.history == nil {
		return MessageResult{}, fmt.Errorf("enhance: no message store configured")
	}

	msg, err := e.history.Get(ctx, sourceID)
	if err != nil {
		return MessageResult{}, fmt.Errorf("enhance: load message %d: %w", sourceID, err)
	}

	enhanced, err := e.EnhanceText(ctx, msg.Content, instructions)
	if err != nil {
		return MessageResult{}, err
	}

	id, err := e.history.AppendEnhanced(ctx, sourceID, enhanced)
	if err != nil {
		return MessageResult{}, fmt.Errorf("enhance: persist enhanced message: %w", err)
	}

	return MessageResult{SourceID: sourceID, EnhancedID: id, Content: enhanced}, nil
}

// SummarizeRecent loads the most recent messages and asks the model for a
// readable digest. style overrides the default summary prompt when non-empty.
// An empty store yields an empty Summary with no model call.
func (e *Enhancer) SummarizeRecent(ctx context.Context, limit int, style string) (Summary, error) {
	if e.history == nil {
		return Summary{}, fmt.Errorf("enhance: no message store configured")
	}
	if limit <= 0 {
		limit = 5
	}

	recent, err := e.history.Recent(ctx, limit)
	if err != nil {
		return Summary{}, fmt.Errorf("enhance: load recent messages: %w", err)
	}
	if len(recent) == 0 {
		return Summary{Messages: []history.Message{}}, nil
	}

	var blob strings.Builder
	for _, m := range recent {
		fmt.Fprintf(&blob, "[%d] %s (at %s)\n", m.ID, m.Content, m.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	if style == "" {
		style = defaultSummaryStyle
	}
	messages := []*schema.Message{
		schema.SystemMessage(style),
		schema.UserMessage("Messages:\n" + blob.String()),
	}

	out, err := e.chatModel.Generate(ctx, messages)
	if err != nil {
		return Summary{}, fmt.Errorf("enhance: generate failed: %w", err)
	}

	return Summary{Messages: recent, Content: strings.TrimSpace(out.Content)}, nil
}

// buildMessages assembles the prompt for a single-text rewrite. Retrieval
// context is injected as a second system message when a retriever is
// configured and the result still fits the token budget.
func (e *Enhancer) buildMessages(ctx context.Context, text, instructions string) []*schema.Message {
	if instructions == "" {
		instructions = defaultInstructions
	}

	messages := []*schema.Message{
		schema.SystemMessage(instructions),
		schema.UserMessage(text),
	}

	if e.retriever == nil {
		return messages
	}

	results, err := e.retriever.Query(ctx, retrieval.QueryRequest{Text: text, Limit: e.retrievalLimit})
	if err != nil {
		// Retrieval failure is non-fatal — log and continue without context.
		logging.FromContext(ctx).Warn("retrieval failed, continuing without context", slog.Any("error", err))
		return messages
	}
	if len(results) == 0 {
		return messages
	}

	ragMsg := schema.SystemMessage(buildRetrievalContext(results))
	withContext := []*schema.Message{messages[0], ragMsg, messages[1]}
	if budget.EstimateMessages(withContext) > e.maxContextTokens {
		logging.FromContext(ctx).Warn("retrieval context dropped to fit token budget",
			slog.Int("documents", len(results)),
			slog.Int("max_tokens", e.maxContextTokens),
		)
		return messages
	}
	return withContext
}

// buildRetrievalContext formats retrieved documents into a system message
// giving the model examples of related prior traffic.
func buildRetrievalContext(results []retrieval.Result) string {
	var sb strings.Builder
	sb.WriteString("## Related Prior Messages\n\n")
	sb.WriteString("The following previously stored documents are similar to the text being rewritten. " +
		"Keep the rewrite consistent with their terminology where applicable.\n\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "### Document %d (source: %s, score: %.3f)\n%s\n\n", i+1, r.Source, r.Score, r.Content)
	}
	return sb.String()
}
