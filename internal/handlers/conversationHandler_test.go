package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nkumar/docchat/internal/api"
	"github.com/nkumar/docchat/internal/data/store"
	"github.com/nkumar/docchat/internal/domain/chatModel"
	"github.com/nkumar/docchat/internal/domain/docModel"
	"github.com/nkumar/docchat/internal/job"
	"github.com/nkumar/docchat/internal/rag"
	"github.com/nkumar/docchat/internal/rag/chat"
	"github.com/nkumar/docchat/internal/rag/ingest"
	"github.com/nkumar/docchat/internal/rag/retriever"
)

type stubSearcher struct{}

func (stubSearcher) Retrieve(ctx context.Context, documentId string, query string, k int) ([]retriever.Result, error) {
	return []retriever.Result{{Text: "some context"}}, nil
}

type stubLoader struct{}

func (stubLoader) LoadHistory(ctx context.Context, conversationId string) ([]chatModel.Entry, error) {
	return nil, nil
}

type stubProvider struct {
	fragments []string
}

func (p *stubProvider) Invoke(ctx context.Context, messages []chatModel.Entry) (string, error) {
	return strings.Join(p.fragments, ""), nil
}

func (p *stubProvider) Stream(ctx context.Context, messages []chatModel.Entry, emit func(string) error) error {
	for _, f := range p.fragments {
		if err := emit(f); err != nil {
			return err
		}
	}
	return nil
}

func (p *stubProvider) Streaming() bool { return true }

type stubRagService struct {
	builder *chat.Builder
}

func (s *stubRagService) IngestDocument(ctx context.Context, doc docModel.Document) (ingest.Result, error) {
	return ingest.Result{}, nil
}

func (s *stubRagService) BuildChat(ctx context.Context, args chat.BuildArgs) (*chat.Session, error) {
	return s.builder.Build(ctx, args)
}

func (s *stubRagService) DropDocumentNamespace(ctx context.Context, documentId string) error {
	return nil
}

var _ rag.Service = (*stubRagService)(nil)

func setupHandlerTest(t *testing.T) (docModel.DocumentStore, chatModel.MessageStore) {
	t.Helper()
	documents := store.InitInMemoryDocumentStore()
	messages := store.InitInMemoryMessageStore()

	ragService := &stubRagService{
		builder: chat.NewBuilder(stubSearcher{}, stubLoader{}, &stubProvider{fragments: []string{"Hel", "lo ", "there"}}),
	}
	jobService := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan job.IngestJob, 10),
		DispatcherChannel: make(chan bool, 10),
		DocumentStore:     documents,
	})
	InitServiceHandler(jobService, ragService, documents, messages)

	// the singleton survives across tests, point it at this test's stores
	handlerInstance.documents = documents
	handlerInstance.messages = messages
	handlerInstance.ragService = ragService
	handlerInstance.jobService = jobService

	ctx := context.Background()
	if err := documents.SaveDocument(ctx, docModel.Document{
		Id: "doc-1", Name: "a.pdf", Ingest: docModel.IngestReady, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
	if err := messages.CreateConversation(ctx, chatModel.Conversation{
		Id: "conv-1", DocumentId: "doc-1", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
	return documents, messages
}

func postMessage(body string, stream bool) *httptest.ResponseRecorder {
	url := "/conversations/conv-1/messages"
	if stream {
		url += "?stream=true"
	}
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "conv-1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	PostMessageHandler(rec, req)
	return rec
}

func TestPostMessageBlocking(t *testing.T) {
	_, messages := setupHandlerTest(t)

	rec := postMessage(`{"input":"what is this?"}`, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var response api.MessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Bad response body: %v", err)
	}
	if response.Role != "assistant" || response.Content != "Hello there" {
		t.Errorf("Unexpected response: %+v", response)
	}

	stored, err := messages.GetMessages(context.Background(), "conv-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 {
		t.Fatalf("Expected user and assistant messages persisted, got %d", len(stored))
	}
	if stored[0].Role != chatModel.RoleUser || stored[1].Role != chatModel.RoleAssistant {
		t.Errorf("Wrong roles persisted: %v, %v", stored[0].Role, stored[1].Role)
	}
	if stored[1].Content != "Hello there" {
		t.Errorf("Assistant content = %q", stored[1].Content)
	}
}

func TestPostMessageStreaming(t *testing.T) {
	_, messages := setupHandlerTest(t)

	rec := postMessage(`{"input":"what is this?"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}

	body := rec.Body.String()
	lines := strings.Split(strings.TrimSpace(body), "\n\n")
	if len(lines) != 4 {
		t.Fatalf("Expected 3 chunks plus [DONE], got %d events: %q", len(lines), body)
	}
	var streamed string
	for _, line := range lines[:3] {
		payload := strings.TrimPrefix(line, "data: ")
		var chunk api.StreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			t.Fatalf("Bad chunk %q: %v", line, err)
		}
		streamed += chunk.Content
	}
	if streamed != "Hello there" {
		t.Errorf("Concatenated stream = %q", streamed)
	}
	if lines[3] != "data: [DONE]" {
		t.Errorf("Last event = %q", lines[3])
	}

	stored, err := messages.GetMessages(context.Background(), "conv-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 || stored[1].Content != "Hello there" || stored[1].Truncated {
		t.Errorf("Unexpected persisted messages: %+v", stored)
	}
}

// brokenPipeWriter fails writes after a set number, the way a closed client
// connection would.
type brokenPipeWriter struct {
	header     http.Header
	writes     int
	goodWrites int
}

func (w *brokenPipeWriter) Header() http.Header {
	if w.header == nil {
		w.header = make(http.Header)
	}
	return w.header
}

func (w *brokenPipeWriter) WriteHeader(statusCode int) {}

func (w *brokenPipeWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes > w.goodWrites {
		return 0, errors.New("write: broken pipe")
	}
	return len(p), nil
}

func (w *brokenPipeWriter) Flush() {}

func TestStreamingClientDisconnectPersistsPartial(t *testing.T) {
	_, messages := setupHandlerTest(t)

	builder := chat.NewBuilder(stubSearcher{}, stubLoader{}, &stubProvider{fragments: []string{"Hel", "lo ", "there"}})
	session, err := builder.Build(context.Background(), chat.BuildArgs{
		ConversationId: "conv-1", DocumentId: "doc-1", Streaming: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/conversations/conv-1/messages?stream=true", nil)
	w := &brokenPipeWriter{goodWrites: 1}
	runStreamingTurn(w, req, session, "conv-1", "question", time.Now())

	stored, err := messages.GetMessages(context.Background(), "conv-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 {
		t.Fatalf("Expected the flushed partial to be persisted, got %d messages", len(stored))
	}
	if stored[0].Content != "Hel" || !stored[0].Truncated {
		t.Errorf("Expected truncated partial %q, got %+v", "Hel", stored[0])
	}
}

func TestPostMessageValidation(t *testing.T) {
	setupHandlerTest(t)

	t.Run("empty input", func(t *testing.T) {
		rec := postMessage(`{"input":""}`, false)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown conversation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/conversations/ghost/messages", strings.NewReader(`{"input":"hi"}`))
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", "ghost")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		rec := httptest.NewRecorder()
		PostMessageHandler(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
	})

	t.Run("document not ready", func(t *testing.T) {
		documents, messages := setupHandlerTest(t)
		ctx := context.Background()
		if err := documents.SaveDocument(ctx, docModel.Document{Id: "doc-pending", Ingest: docModel.IngestPending}); err != nil {
			t.Fatal(err)
		}
		if err := messages.CreateConversation(ctx, chatModel.Conversation{Id: "conv-pending", DocumentId: "doc-pending"}); err != nil {
			t.Fatal(err)
		}

		req := httptest.NewRequest(http.MethodPost, "/conversations/conv-pending/messages", strings.NewReader(`{"input":"hi"}`))
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", "conv-pending")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		rec := httptest.NewRecorder()
		PostMessageHandler(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("Expected 409, got %d", rec.Code)
		}
	})
}
