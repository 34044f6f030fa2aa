package rag

import (
	"context"
	"time"

	"github.com/nkumar/docchat/internal/domain/docModel"
	"github.com/nkumar/docchat/internal/metrics"
	"github.com/nkumar/docchat/internal/rag/chat"
	"github.com/nkumar/docchat/internal/rag/embedding"
	"github.com/nkumar/docchat/internal/rag/ingest"
	"github.com/nkumar/docchat/internal/rag/llm"
	"github.com/nkumar/docchat/internal/rag/memory"
	"github.com/nkumar/docchat/internal/rag/retriever"
	"github.com/nkumar/docchat/internal/rag/vectorDB"
	"github.com/nkumar/docchat/pkg/logger"
)

// Service is the public contract the workers and handlers consume. They never
// touch the vector index, embedder or LLM clients directly; swapping those
// for mocks in tests happens through this constructor.
type Service interface {
	IngestDocument(ctx context.Context, doc docModel.Document) (ingest.Result, error)
	BuildChat(ctx context.Context, args chat.BuildArgs) (*chat.Session, error)
	DropDocumentNamespace(ctx context.Context, documentId string) error
}

type service struct {
	ingestor    *ingest.Ingestor
	chatBuilder *chat.Builder
	index       vectorDB.Index
	logger      *logger.Logger
}

// NewService wires the pipeline out of injected clients. An index that also
// implements AnswerCache gets repeat-question reuse for free.
func NewService(index vectorDB.Index, provider llm.Provider, embedder embedding.Embedder, history memory.Loader, embeddingModel string) Service {
	chatBuilder := chat.NewBuilder(retriever.New(index, embedder), history, provider)
	if cache, ok := index.(vectorDB.AnswerCache); ok {
		chatBuilder.WithAnswerCache(cache, embedder)
	}
	return &service{
		ingestor:    ingest.NewIngestor(embedder, index, embeddingModel),
		chatBuilder: chatBuilder,
		index:       index,
		logger:      logger.NewLogger("RAG Service"),
	}
}

func (s *service) IngestDocument(ctx context.Context, doc docModel.Document) (ingest.Result, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	result, err := s.ingestor.Ingest(ctx, doc)
	if err != nil {
		s.logger.Error("Ingestion failed", "documentId", doc.Id, "error", err)
		return result, err
	}
	return result, nil
}

func (s *service) BuildChat(ctx context.Context, args chat.BuildArgs) (*chat.Session, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("chat_build", time.Since(start)) }()
	return s.chatBuilder.Build(ctx, args)
}

func (s *service) DropDocumentNamespace(ctx context.Context, documentId string) error {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("namespace_drop", time.Since(start)) }()
	return s.index.DropNamespace(ctx, documentId)
}
