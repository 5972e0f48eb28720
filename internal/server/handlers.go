package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/echorelay/echorelay/internal/history"
	"github.com/echorelay/echorelay/internal/logging"
	"github.com/echorelay/echorelay/internal/retrieval"
)

// handleUpsert handles POST /api/rag/upsert. It embeds and stores a document,
// returning the assigned id.
func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	id, err := s.store.Upsert(r.Context(), retrieval.UpsertRequest{
		Source:  req.Source,
		Content: req.Content,
		Store:   req.Store,
	})
	s.metrics.observeRAG("upsert", start, err)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, upsertResponse{ID: id})
}

// handleQuery handles POST /api/rag/query. It returns the stored documents
// most similar to the query text, best first.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	// An omitted limit means the default; an explicit negative limit still
	// yields an empty result set.
	if req.Limit == 0 {
		req.Limit = retrieval.DefaultLimit
	}

	start := time.Now()
	results, err := s.store.Query(r.Context(), retrieval.QueryRequest{
		Text:   req.Text,
		Limit:  req.Limit,
		Stores: req.Stores,
	})
	s.metrics.observeRAG("query", start, err)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if results == nil {
		results = []retrieval.Result{}
	}

	writeJSON(w, http.StatusOK, queryResponse{Results: results})
}

// handleStores handles GET /api/rag/stores. It reports the configured store
// topology so clients can target composite members by name.
func (s *Server) handleStores(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, storesResponse{
		Name:  s.store.Name(),
		Names: s.store.Names(),
	})
}

// handleMessageAppend handles POST /api/messages.
func (s *Server) handleMessageAppend(w http.ResponseWriter, r *http.Request) {
	if s.messages == nil {
		writeError(w, http.StatusServiceUnavailable, "message history is disabled")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	id, err := s.messages.Append(r.Context(), req.Content)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{ID: id})
}

// handleMessageRecent handles GET /api/messages?limit=N.
func (s *Server) handleMessageRecent(w http.ResponseWriter, r *http.Request) {
	if s.messages == nil {
		writeError(w, http.StatusServiceUnavailable, "message history is disabled")
		return
	}

	limit := queryInt(r, "limit", 20)
	msgs, err := s.messages.Recent(r.Context(), limit)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []history.Message{}
	}

	writeJSON(w, http.StatusOK, messagesResponse{Messages: msgs})
}

// handleMessageEnhanced handles GET /api/messages/{id}/enhanced?limit=N.
func (s *Server) handleMessageEnhanced(w http.ResponseWriter, r *http.Request) {
	if s.messages == nil {
		writeError(w, http.StatusServiceUnavailable, "message history is disabled")
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 10)
	enhanced, err := s.messages.EnhancedFor(r.Context(), id, limit)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if enhanced == nil {
		enhanced = []history.Enhanced{}
	}

	writeJSON(w, http.StatusOK, enhancedResponse{Enhanced: enhanced})
}

// handleMessageEnhance handles POST /api/messages/{id}/enhance. It rewrites
// the stored message and persists the result linked to its source.
func (s *Server) handleMessageEnhance(w http.ResponseWriter, r *http.Request) {
	if s.enhancer == nil {
		writeError(w, http.StatusServiceUnavailable, "enhancement is disabled")
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req enhanceMessageRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	start := time.Now()
	res, err := s.enhancer.EnhanceMessage(r.Context(), id, req.Instructions)
	s.metrics.observeEnhance("message", start, err)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleEnhanceText handles POST /api/enhance. It rewrites free-form text
// without persisting anything.
func (s *Server) handleEnhanceText(w http.ResponseWriter, r *http.Request) {
	if s.enhancer == nil {
		writeError(w, http.StatusServiceUnavailable, "enhancement is disabled")
		return
	}

	var req enhanceTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	start := time.Now()
	enhanced, err := s.enhancer.EnhanceText(r.Context(), req.Text, req.Instructions)
	s.metrics.observeEnhance("text", start, err)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, enhanceTextResponse{Original: req.Text, Enhanced: enhanced})
}

// handleEnhanceRecent handles POST /api/enhance/recent. It summarizes the
// most recent messages into a readable digest.
func (s *Server) handleEnhanceRecent(w http.ResponseWriter, r *http.Request) {
	if s.enhancer == nil {
		writeError(w, http.StatusServiceUnavailable, "enhancement is disabled")
		return
	}

	var req summarizeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	start := time.Now()
	sum, err := s.enhancer.SummarizeRecent(r.Context(), req.Limit, req.Style)
	s.metrics.observeEnhance("recent", start, err)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sum)
}

// writeStoreError maps domain errors to HTTP statuses and writes the response.
// Client mistakes (unknown store, bad config, missing message) map to 4xx;
// backend failures map to 502/503 so callers can distinguish retryable faults.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())

	var status int
	switch {
	case errors.Is(err, retrieval.ErrUnknownStore), errors.Is(err, retrieval.ErrInvalidConfig):
		status = http.StatusBadRequest
	case errors.Is(err, history.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, retrieval.ErrEmbeddingUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, retrieval.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", slog.Int("status", status), slog.Any("error", err))
	} else {
		log.Warn("request rejected", slog.Int("status", status), slog.Any("error", err))
	}

	writeError(w, status, err.Error())
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// pathID parses the {id} path value as an int64, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return 0, false
	}
	return id, true
}

// queryInt parses an integer query parameter, returning fallback when the
// parameter is absent or unparseable.
func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
