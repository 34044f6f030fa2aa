package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nkumar/docchat/internal/adapter/utils"
	"github.com/nkumar/docchat/internal/config"
	"github.com/nkumar/docchat/internal/domain/chatModel"
	"github.com/nkumar/docchat/internal/rag/embedding"
	"github.com/nkumar/docchat/internal/rag/llm"
	"github.com/nkumar/docchat/internal/rag/memory"
	"github.com/nkumar/docchat/internal/rag/retriever"
	"github.com/nkumar/docchat/internal/rag/vectorDB"
	"github.com/nkumar/docchat/pkg/logger"
)

// ErrBuild marks a failure assembling a chat session. Fatal to the request
// that asked for it; per-call failures after a successful build are not.
var ErrBuild = errors.New("chat session build failed")

// FallbackMessage is returned whenever retrieval yields no context. The model
// is never called in that case.
const FallbackMessage = "I could not find any relevant information in the document to answer your question."

type BuildArgs struct {
	ConversationId string
	DocumentId     string
	Streaming      bool
}

// Builder composes retriever, history loader and LLM provider into sessions.
// The collaborators are constructed once at process start and injected here.
type Builder struct {
	retriever retriever.Searcher
	history   memory.Loader
	provider  llm.Provider
	cache     vectorDB.AnswerCache
	embedder  embedding.Embedder
	topK      int
	logger    *logger.Logger
}

func NewBuilder(r retriever.Searcher, h memory.Loader, p llm.Provider) *Builder {
	return &Builder{
		retriever: r,
		history:   h,
		provider:  p,
		topK:      config.RetrievalTopK,
		logger:    logger.NewLogger("Chat"),
	}
}

// WithAnswerCache enables answer reuse for repeat questions. Only opening
// turns are cached; once a conversation has history the answer depends on it.
func (b *Builder) WithAnswerCache(cache vectorDB.AnswerCache, embedder embedding.Embedder) *Builder {
	b.cache = cache
	b.embedder = embedder
	return b
}

// Build creates a session for one conversation. History is loaded here, once;
// the session replays the conversation as it stood at build time.
func (b *Builder) Build(ctx context.Context, args BuildArgs) (*Session, error) {
	if b.retriever == nil || b.history == nil || b.provider == nil {
		return nil, fmt.Errorf("%w: missing collaborator", ErrBuild)
	}
	if args.ConversationId == "" || args.DocumentId == "" {
		return nil, fmt.Errorf("%w: conversation and document ids are required", ErrBuild)
	}

	history, err := b.history.LoadHistory(ctx, args.ConversationId)
	if err != nil {
		return nil, fmt.Errorf("%w: loading history: %v", ErrBuild, err)
	}

	return &Session{
		conversationId: args.ConversationId,
		documentId:     args.DocumentId,
		streaming:      args.Streaming,
		history:        history,
		retriever:      b.retriever,
		provider:       b.provider,
		cache:          b.cache,
		embedder:       b.embedder,
		topK:           b.topK,
		logger:         b.logger.With("conversationId", args.ConversationId, "documentId", args.DocumentId),
	}, nil
}

// Session is one conversational turn context: retrieve, assemble, generate.
type Session struct {
	conversationId string
	documentId     string
	streaming      bool
	history        []chatModel.Entry
	retriever      retriever.Searcher
	provider       llm.Provider
	cache          vectorDB.AnswerCache
	embedder       embedding.Embedder
	queryVector    []float32
	topK           int
	logger         *logger.Logger
}

// Run answers one question in a single blocking call.
func (s *Session) Run(ctx context.Context, question string) (string, error) {
	if answer, ok := s.cachedAnswer(ctx, question); ok {
		return answer, nil
	}

	docs, err := s.retriever.Retrieve(ctx, s.documentId, question, s.topK)
	if err != nil {
		return "", err
	}
	s.logger.Debug("Retrieved context", "chunks", len(docs))

	if len(docs) == 0 {
		return FallbackMessage, nil
	}

	messages := assemblePrompt(s.history, docs, question)
	answer, err := s.provider.Invoke(ctx, messages)
	if err != nil {
		return "", err
	}
	s.saveAnswer(ctx, answer)
	return answer, nil
}

// Stream answers one question incrementally, emitting fragments as the model
// produces them. With no retrieved context it emits the fallback message and
// stops without calling the model. On a non-streaming provider, or a session
// built without streaming, the full answer arrives as a single fragment.
func (s *Session) Stream(ctx context.Context, question string, emit func(fragment string) error) error {
	if !s.streaming || !s.provider.Streaming() {
		answer, err := s.Run(ctx, question)
		if err != nil {
			return err
		}
		return emit(answer)
	}

	if answer, ok := s.cachedAnswer(ctx, question); ok {
		return emit(answer)
	}

	docs, err := s.retriever.Retrieve(ctx, s.documentId, question, s.topK)
	if err != nil {
		return err
	}
	s.logger.Debug("Retrieved context for stream", "chunks", len(docs))

	if len(docs) == 0 {
		return emit(FallbackMessage)
	}

	messages := assemblePrompt(s.history, docs, question)
	var full strings.Builder
	if err := s.provider.Stream(ctx, messages, func(fragment string) error {
		full.WriteString(fragment)
		return emit(fragment)
	}); err != nil {
		return err
	}
	s.saveAnswer(ctx, full.String())
	return nil
}

// cachedAnswer consults the answer cache for an opening turn. A lookup or
// embedding failure degrades to a miss, never a failed request.
func (s *Session) cachedAnswer(ctx context.Context, question string) (string, bool) {
	if s.cache == nil || s.embedder == nil || len(s.history) > 0 {
		return "", false
	}

	vector, err := s.embedder.GetEmbedding(ctx, question)
	if err != nil {
		s.logger.Warn("Cache lookup skipped", "err", err)
		return "", false
	}
	s.queryVector = vector

	answer, found, err := s.cache.GetCachedAnswer(ctx, s.documentId, vector)
	if err != nil {
		s.logger.Warn("Cache lookup failed", "err", err)
		return "", false
	}
	return answer, found
}

// saveAnswer records a generated answer under the question vector captured by
// cachedAnswer. Turns with history never set the vector and are not saved.
func (s *Session) saveAnswer(ctx context.Context, answer string) {
	if s.cache == nil || s.queryVector == nil || answer == "" {
		return
	}
	if err := s.cache.SaveToCache(ctx, s.documentId, utils.GetNewUUID(), s.queryVector, answer); err != nil {
		s.logger.Warn("Cache save failed", "err", err)
	}
}
