package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nkumar/docchat/internal/domain/chatModel"
	"github.com/nkumar/docchat/internal/rag/retriever"
)

type MockSearcher struct {
	OnRetrieve func(documentId string, query string, k int) ([]retriever.Result, error)
}

func (m *MockSearcher) Retrieve(ctx context.Context, documentId string, query string, k int) ([]retriever.Result, error) {
	if m.OnRetrieve != nil {
		return m.OnRetrieve(documentId, query, k)
	}
	return []retriever.Result{}, nil
}

type MockLoader struct {
	History []chatModel.Entry
	Err     error
}

func (m *MockLoader) LoadHistory(ctx context.Context, conversationId string) ([]chatModel.Entry, error) {
	return m.History, m.Err
}

type MockProvider struct {
	InvokeCalls int
	StreamCalls int
	Answer      string
	Fragments   []string
	Err         error
	IsStreaming bool
	GotMessages []chatModel.Entry
}

func (m *MockProvider) Invoke(ctx context.Context, messages []chatModel.Entry) (string, error) {
	m.InvokeCalls++
	m.GotMessages = messages
	return m.Answer, m.Err
}

func (m *MockProvider) Stream(ctx context.Context, messages []chatModel.Entry, emit func(string) error) error {
	m.StreamCalls++
	m.GotMessages = messages
	if m.Err != nil {
		return m.Err
	}
	for _, f := range m.Fragments {
		if err := emit(f); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockProvider) Streaming() bool { return m.IsStreaming }

func buildSession(t *testing.T, r retriever.Searcher, h *MockLoader, p *MockProvider, streaming bool) *Session {
	t.Helper()
	session, err := NewBuilder(r, h, p).Build(context.Background(), BuildArgs{
		ConversationId: "conv-1",
		DocumentId:     "doc-1",
		Streaming:      streaming,
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return session
}

func TestBuildValidation(t *testing.T) {

	t.Run("missing collaborator", func(t *testing.T) {
		_, err := NewBuilder(nil, &MockLoader{}, &MockProvider{}).Build(context.Background(), BuildArgs{ConversationId: "c", DocumentId: "d"})
		if !errors.Is(err, ErrBuild) {
			t.Errorf("Expected ErrBuild, got %v", err)
		}
	})

	t.Run("missing ids", func(t *testing.T) {
		_, err := NewBuilder(&MockSearcher{}, &MockLoader{}, &MockProvider{}).Build(context.Background(), BuildArgs{})
		if !errors.Is(err, ErrBuild) {
			t.Errorf("Expected ErrBuild, got %v", err)
		}
	})

	t.Run("history load failure", func(t *testing.T) {
		loader := &MockLoader{Err: errors.New("redis down")}
		_, err := NewBuilder(&MockSearcher{}, loader, &MockProvider{}).Build(context.Background(), BuildArgs{ConversationId: "c", DocumentId: "d"})
		if !errors.Is(err, ErrBuild) {
			t.Errorf("Expected ErrBuild, got %v", err)
		}
	})
}

func TestRunEmptyRetrieval(t *testing.T) {
	provider := &MockProvider{Answer: "should never be seen"}
	session := buildSession(t, &MockSearcher{}, &MockLoader{}, provider, false)

	answer, err := session.Run(context.Background(), "what is this about?")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if answer != FallbackMessage {
		t.Errorf("Expected fallback message, got %q", answer)
	}
	if provider.InvokeCalls != 0 {
		t.Errorf("Provider must not be called with empty context, got %d calls", provider.InvokeCalls)
	}
}

func TestStreamEmptyRetrieval(t *testing.T) {
	provider := &MockProvider{IsStreaming: true}
	session := buildSession(t, &MockSearcher{}, &MockLoader{}, provider, true)

	var fragments []string
	err := session.Stream(context.Background(), "anything?", func(f string) error {
		fragments = append(fragments, f)
		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(fragments) != 1 || fragments[0] != FallbackMessage {
		t.Errorf("Expected single fallback fragment, got %v", fragments)
	}
	if provider.StreamCalls != 0 || provider.InvokeCalls != 0 {
		t.Error("Provider must not be called with empty context")
	}
}

func TestRunAssemblesPrompt(t *testing.T) {
	searcher := &MockSearcher{OnRetrieve: func(documentId, query string, k int) ([]retriever.Result, error) {
		if documentId != "doc-1" {
			t.Errorf("Retrieve got document %q", documentId)
		}
		return []retriever.Result{{Text: "chunk one"}, {Text: "chunk two"}}, nil
	}}
	loader := &MockLoader{History: []chatModel.Entry{
		{Role: chatModel.RoleUser, Content: "earlier question"},
		{Role: chatModel.RoleAssistant, Content: "earlier answer"},
	}}
	provider := &MockProvider{Answer: "generated"}
	session := buildSession(t, searcher, loader, provider, false)

	answer, err := session.Run(context.Background(), "new question")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if answer != "generated" {
		t.Errorf("Expected provider answer, got %q", answer)
	}

	messages := provider.GotMessages
	if len(messages) != 4 {
		t.Fatalf("Expected 4 messages, got %d", len(messages))
	}
	if messages[0].Role != chatModel.RoleSystem || messages[0].Content != systemInstruction {
		t.Errorf("First message must be the system instruction, got %+v", messages[0])
	}
	if messages[1].Content != "earlier question" || messages[2].Content != "earlier answer" {
		t.Error("History must be replayed verbatim and in order")
	}
	final := messages[3]
	if final.Role != chatModel.RoleUser {
		t.Errorf("Final message role = %v", final.Role)
	}
	if !strings.Contains(final.Content, "chunk one\n\nchunk two") {
		t.Errorf("Final message missing joined context: %q", final.Content)
	}
	if !strings.Contains(final.Content, "Question: new question") {
		t.Errorf("Final message missing question: %q", final.Content)
	}
}

func TestStreamFragmentsMatchRun(t *testing.T) {
	searcher := &MockSearcher{OnRetrieve: func(documentId, query string, k int) ([]retriever.Result, error) {
		return []retriever.Result{{Text: "context"}}, nil
	}}
	provider := &MockProvider{
		Answer:      "the full answer",
		Fragments:   []string{"the ", "full ", "answer"},
		IsStreaming: true,
	}
	session := buildSession(t, searcher, &MockLoader{}, provider, true)

	var got string
	if err := session.Stream(context.Background(), "q", func(f string) error {
		got += f
		return nil
	}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want, err := session.Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("Concatenated stream %q != blocking answer %q", got, want)
	}
}

func TestStreamFallsBackToBlocking(t *testing.T) {
	searcher := &MockSearcher{OnRetrieve: func(documentId, query string, k int) ([]retriever.Result, error) {
		return []retriever.Result{{Text: "context"}}, nil
	}}

	t.Run("non-streaming provider", func(t *testing.T) {
		provider := &MockProvider{Answer: "whole answer", IsStreaming: false}
		session := buildSession(t, searcher, &MockLoader{}, provider, true)

		var fragments []string
		if err := session.Stream(context.Background(), "q", func(f string) error {
			fragments = append(fragments, f)
			return nil
		}); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(fragments) != 1 || fragments[0] != "whole answer" {
			t.Errorf("Expected single full fragment, got %v", fragments)
		}
		if provider.StreamCalls != 0 || provider.InvokeCalls != 1 {
			t.Errorf("Expected blocking path, invoke=%d stream=%d", provider.InvokeCalls, provider.StreamCalls)
		}
	})

	t.Run("session built without streaming", func(t *testing.T) {
		provider := &MockProvider{Answer: "whole answer", IsStreaming: true}
		session := buildSession(t, searcher, &MockLoader{}, provider, false)

		var fragments []string
		if err := session.Stream(context.Background(), "q", func(f string) error {
			fragments = append(fragments, f)
			return nil
		}); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(fragments) != 1 {
			t.Errorf("Expected single fragment, got %v", fragments)
		}
	})
}

type MockEmbedder struct {
	Vector []float32
	Err    error
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return m.Vector, m.Err
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	return [][]float32{m.Vector}, m.Err
}

type savedAnswer struct {
	DocumentId string
	Answer     string
}

type MockAnswerCache struct {
	CachedAnswer string
	Hit          bool
	GetCalls     int
	Saved        []savedAnswer
}

func (m *MockAnswerCache) GetCachedAnswer(ctx context.Context, documentId string, queryVector []float32) (string, bool, error) {
	m.GetCalls++
	return m.CachedAnswer, m.Hit, nil
}

func (m *MockAnswerCache) SaveToCache(ctx context.Context, documentId string, id string, vector []float32, answer string) error {
	m.Saved = append(m.Saved, savedAnswer{DocumentId: documentId, Answer: answer})
	return nil
}

func buildCachedSession(t *testing.T, cache *MockAnswerCache, loader *MockLoader, provider *MockProvider, streaming bool) *Session {
	t.Helper()
	searcher := &MockSearcher{OnRetrieve: func(documentId, query string, k int) ([]retriever.Result, error) {
		return []retriever.Result{{Text: "context"}}, nil
	}}
	builder := NewBuilder(searcher, loader, provider).
		WithAnswerCache(cache, &MockEmbedder{Vector: []float32{0.1, 0.2}})
	session, err := builder.Build(context.Background(), BuildArgs{
		ConversationId: "conv-1",
		DocumentId:     "doc-1",
		Streaming:      streaming,
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return session
}

func TestRunAnswerCacheHit(t *testing.T) {
	cache := &MockAnswerCache{CachedAnswer: "seen this before", Hit: true}
	provider := &MockProvider{Answer: "fresh answer"}
	session := buildCachedSession(t, cache, &MockLoader{}, provider, false)

	answer, err := session.Run(context.Background(), "the same question")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if answer != "seen this before" {
		t.Errorf("Expected the cached answer, got %q", answer)
	}
	if provider.InvokeCalls != 0 {
		t.Errorf("Provider must not be called on a cache hit, got %d calls", provider.InvokeCalls)
	}
}

func TestRunAnswerCacheMissSaves(t *testing.T) {
	cache := &MockAnswerCache{}
	provider := &MockProvider{Answer: "fresh answer"}
	session := buildCachedSession(t, cache, &MockLoader{}, provider, false)

	answer, err := session.Run(context.Background(), "a new question")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if answer != "fresh answer" {
		t.Errorf("Expected the generated answer, got %q", answer)
	}
	if len(cache.Saved) != 1 {
		t.Fatalf("Expected one cache save, got %d", len(cache.Saved))
	}
	if cache.Saved[0].DocumentId != "doc-1" || cache.Saved[0].Answer != "fresh answer" {
		t.Errorf("Unexpected cache entry: %+v", cache.Saved[0])
	}
}

func TestAnswerCacheBypassedWithHistory(t *testing.T) {
	cache := &MockAnswerCache{CachedAnswer: "stale", Hit: true}
	loader := &MockLoader{History: []chatModel.Entry{
		{Role: chatModel.RoleUser, Content: "earlier question"},
		{Role: chatModel.RoleAssistant, Content: "earlier answer"},
	}}
	provider := &MockProvider{Answer: "context-aware answer"}
	session := buildCachedSession(t, cache, loader, provider, false)

	answer, err := session.Run(context.Background(), "follow-up")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if answer != "context-aware answer" {
		t.Errorf("Expected a generated answer, got %q", answer)
	}
	if cache.GetCalls != 0 {
		t.Errorf("Cache must not be consulted once history exists, got %d lookups", cache.GetCalls)
	}
	if len(cache.Saved) != 0 {
		t.Errorf("Follow-up answers must not be cached, got %v", cache.Saved)
	}
}

func TestStreamAnswerCacheHit(t *testing.T) {
	cache := &MockAnswerCache{CachedAnswer: "seen this before", Hit: true}
	provider := &MockProvider{Fragments: []string{"a", "b"}, IsStreaming: true}
	session := buildCachedSession(t, cache, &MockLoader{}, provider, true)

	var fragments []string
	if err := session.Stream(context.Background(), "the same question", func(f string) error {
		fragments = append(fragments, f)
		return nil
	}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(fragments) != 1 || fragments[0] != "seen this before" {
		t.Errorf("Expected the cached answer as one fragment, got %v", fragments)
	}
	if provider.StreamCalls != 0 {
		t.Errorf("Provider must not be called on a cache hit, got %d calls", provider.StreamCalls)
	}
}

func TestStreamAnswerCacheMissSaves(t *testing.T) {
	cache := &MockAnswerCache{}
	provider := &MockProvider{Fragments: []string{"the ", "answer"}, IsStreaming: true}
	session := buildCachedSession(t, cache, &MockLoader{}, provider, true)

	if err := session.Stream(context.Background(), "a new question", func(f string) error {
		return nil
	}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(cache.Saved) != 1 || cache.Saved[0].Answer != "the answer" {
		t.Errorf("Expected the concatenated stream to be cached, got %v", cache.Saved)
	}
}

func TestStreamEmitErrorStopsProvider(t *testing.T) {
	searcher := &MockSearcher{OnRetrieve: func(documentId, query string, k int) ([]retriever.Result, error) {
		return []retriever.Result{{Text: "context"}}, nil
	}}
	provider := &MockProvider{Fragments: []string{"a", "b", "c"}, IsStreaming: true}
	session := buildSession(t, searcher, &MockLoader{}, provider, true)

	emitted := 0
	err := session.Stream(context.Background(), "q", func(f string) error {
		emitted++
		if emitted == 2 {
			return errors.New("client gone")
		}
		return nil
	})
	if err == nil {
		t.Fatal("Expected error from emit")
	}
	if emitted != 2 {
		t.Errorf("Expected emission to stop at 2, got %d", emitted)
	}
}
