package enhance

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/echorelay/echorelay/internal/history"
	"github.com/echorelay/echorelay/internal/logging"
	"github.com/echorelay/echorelay/internal/retrieval"
)

// fakeChat is a scripted ChatModel that records the messages it receives.
type fakeChat struct {
	reply string
	err   error

	calls    int
	received []*schema.Message
}

func (f *fakeChat) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls++
	f.received = in
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChat) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (f *fakeChat) BindTools(_ []*schema.ToolInfo) error {
	return nil
}

// stubStore is a retrieval.Store returning fixed results or a fixed error.
type stubStore struct {
	results []retrieval.Result
	err     error
}

func (s *stubStore) Name() string    { return "stub" }
func (s *stubStore) Names() []string { return []string{"stub"} }

func (s *stubStore) Upsert(context.Context, retrieval.UpsertRequest) (string, error) {
	return "", errors.New("not implemented")
}

func (s *stubStore) Query(context.Context, retrieval.QueryRequest) ([]retrieval.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func (s *stubStore) Close() error { return nil }

func testCtx() context.Context {
	return logging.WithLogger(context.Background(), logging.Discard())
}

func openHistory(t *testing.T) *history.SQLiteStore {
	t.Helper()
	st, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func Test_EnhanceText_DefaultInstructions(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: "  cleaner text  "}
	e, err := New(&Config{ChatModel: chat})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	got, err := e.EnhanceText(testCtx(), "orig text", "")
	if err != nil {
		t.Fatalf("EnhanceText() error: %v", err)
	}
	if got != "cleaner text" {
		t.Errorf("EnhanceText() = %q, want trimmed reply", got)
	}

	if len(chat.received) != 2 {
		t.Fatalf("model received %d messages, want 2", len(chat.received))
	}
	if chat.received[0].Role != schema.System || !strings.Contains(chat.received[0].Content, "without changing meaning") {
		t.Errorf("system message = %+v, want default rewrite instructions", chat.received[0])
	}
	if chat.received[1].Role != schema.User || chat.received[1].Content != "orig text" {
		t.Errorf("user message = %+v, want original text", chat.received[1])
	}
}

func Test_EnhanceText_CustomInstructions(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: "ok"}
	e, err := New(&Config{ChatModel: chat})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := e.EnhanceText(testCtx(), "text", "Translate to pirate speak."); err != nil {
		t.Fatalf("EnhanceText() error: %v", err)
	}
	if chat.received[0].Content != "Translate to pirate speak." {
		t.Errorf("system message = %q, want caller instructions", chat.received[0].Content)
	}
}

func Test_EnhanceText_ModelFailure(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{err: errors.New("model down")}
	e, err := New(&Config{ChatModel: chat})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := e.EnhanceText(testCtx(), "text", ""); err == nil {
		t.Fatal("EnhanceText() expected error when model fails")
	}
}

func Test_EnhanceText_RetrievalContextInjected(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: "ok"}
	retr := &stubStore{results: []retrieval.Result{
		{ID: "1", Source: "relay", Content: "prior message about deployments", Score: 0.9},
	}}
	e, err := New(&Config{ChatModel: chat, Retriever: retr})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := e.EnhanceText(testCtx(), "deploy note", ""); err != nil {
		t.Fatalf("EnhanceText() error: %v", err)
	}

	if len(chat.received) != 3 {
		t.Fatalf("model received %d messages, want 3 (instructions, context, text)", len(chat.received))
	}
	ctxMsg := chat.received[1]
	if ctxMsg.Role != schema.System || !strings.Contains(ctxMsg.Content, "prior message about deployments") {
		t.Errorf("context message = %+v, want retrieved document content", ctxMsg)
	}
	if chat.received[2].Content != "deploy note" {
		t.Errorf("user message = %q, want original text last", chat.received[2].Content)
	}
}

func Test_EnhanceText_RetrievalFailureNonFatal(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: "ok"}
	e, err := New(&Config{ChatModel: chat, Retriever: &stubStore{err: errors.New("store down")}})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	got, err := e.EnhanceText(testCtx(), "text", "")
	if err != nil {
		t.Fatalf("EnhanceText() error: %v", err)
	}
	if got != "ok" {
		t.Errorf("EnhanceText() = %q, want model reply despite retrieval failure", got)
	}
	if len(chat.received) != 2 {
		t.Errorf("model received %d messages, want 2 (no context on retrieval failure)", len(chat.received))
	}
}

func Test_EnhanceText_ContextDroppedOverBudget(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: "ok"}
	retr := &stubStore{results: []retrieval.Result{
		{ID: "1", Source: "relay", Content: strings.Repeat("long document ", 200), Score: 0.9},
	}}
	e, err := New(&Config{ChatModel: chat, Retriever: retr, MaxContextTokens: 50})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := e.EnhanceText(testCtx(), "text", ""); err != nil {
		t.Fatalf("EnhanceText() error: %v", err)
	}
	if len(chat.received) != 2 {
		t.Errorf("model received %d messages, want 2 (context dropped over budget)", len(chat.received))
	}
}

func Test_EnhanceMessage_RoundTrip(t *testing.T) {
	t.Parallel()

	st := openHistory(t)
	ctx := testCtx()

	srcID, err := st.Append(ctx, "raw relay message")
	if err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	chat := &fakeChat{reply: "polished relay message"}
	e, err := New(&Config{ChatModel: chat, History: st})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	res, err := e.EnhanceMessage(ctx, srcID, "")
	if err != nil {
		t.Fatalf("EnhanceMessage() error: %v", err)
	}
	if res.SourceID != srcID || res.Content != "polished relay message" {
		t.Errorf("EnhanceMessage() = %+v, want source %d with model reply", res, srcID)
	}

	stored, err := st.EnhancedFor(ctx, srcID, 10)
	if err != nil {
		t.Fatalf("EnhancedFor() error: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != res.EnhancedID || stored[0].Content != "polished relay message" {
		t.Errorf("EnhancedFor() = %+v, want the persisted enhancement", stored)
	}
}

func Test_EnhanceMessage_MissingSource(t *testing.T) {
	t.Parallel()

	st := openHistory(t)
	chat := &fakeChat{reply: "unused"}
	e, err := New(&Config{ChatModel: chat, History: st})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	_, err = e.EnhanceMessage(testCtx(), 9999, "")
	if !errors.Is(err, history.ErrNotFound) {
		t.Errorf("EnhanceMessage() error = %v, want history.ErrNotFound", err)
	}
	if chat.calls != 0 {
		t.Errorf("model called %d times for missing source, want 0", chat.calls)
	}
}

func Test_SummarizeRecent_EmptyStore(t *testing.T) {
	t.Parallel()

	st := openHistory(t)
	chat := &fakeChat{reply: "unused"}
	e, err := New(&Config{ChatModel: chat, History: st})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	sum, err := e.SummarizeRecent(testCtx(), 5, "")
	if err != nil {
		t.Fatalf("SummarizeRecent() error: %v", err)
	}
	if len(sum.Messages) != 0 || sum.Content != "" {
		t.Errorf("SummarizeRecent() = %+v, want empty summary", sum)
	}
	if chat.calls != 0 {
		t.Errorf("model called %d times for empty store, want 0", chat.calls)
	}
}

func Test_SummarizeRecent_BuildsDigest(t *testing.T) {
	t.Parallel()

	st := openHistory(t)
	ctx := testCtx()
	for _, content := range []string{"first", "second", "third"} {
		if _, err := st.Append(ctx, content); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	chat := &fakeChat{reply: "Enhanced Messages\n- bullet"}
	e, err := New(&Config{ChatModel: chat, History: st})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	sum, err := e.SummarizeRecent(ctx, 2, "")
	if err != nil {
		t.Fatalf("SummarizeRecent() error: %v", err)
	}
	if len(sum.Messages) != 2 {
		t.Fatalf("SummarizeRecent() returned %d messages, want 2", len(sum.Messages))
	}
	if sum.Messages[0].Content != "third" {
		t.Errorf("SummarizeRecent() first message = %q, want newest first", sum.Messages[0].Content)
	}
	if sum.Content != "Enhanced Messages\n- bullet" {
		t.Errorf("SummarizeRecent() content = %q, want model digest", sum.Content)
	}

	user := chat.received[len(chat.received)-1]
	if !strings.Contains(user.Content, "third") || !strings.Contains(user.Content, "second") {
		t.Errorf("prompt = %q, want both recent messages listed", user.Content)
	}
	if strings.Contains(user.Content, "first") {
		t.Errorf("prompt = %q, should not include messages beyond the limit", user.Content)
	}
}
