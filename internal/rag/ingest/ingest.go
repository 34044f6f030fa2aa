package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nkumar/docchat/internal/config"
	"github.com/nkumar/docchat/internal/domain/docModel"
	"github.com/nkumar/docchat/internal/rag/embedding"
	"github.com/nkumar/docchat/internal/rag/vectorDB"
	"github.com/nkumar/docchat/pkg/logger"
)

var (
	// ErrExtraction covers unreadable files and unparseable documents.
	ErrExtraction = errors.New("document extraction failed")
	// ErrEmptyDocument covers image-only or scanned files whose extracted
	// text is empty; embedding them would silently index nothing useful.
	ErrEmptyDocument = errors.New("document contains no readable text")
	// ErrNoChunks covers text the splitter could not turn into chunks.
	ErrNoChunks = errors.New("no chunks created from document")
)

type Result struct {
	ChunkCount int `json:"chunks"`
	PageCount  int `json:"pages"`
}

// Ingestor extracts, chunks, embeds and upserts one document at a time into
// the vector index namespace matching the document id.
type Ingestor struct {
	embedder embedding.Embedder
	index    vectorDB.Index
	model    string
	logger   *logger.Logger
}

func NewIngestor(e embedding.Embedder, index vectorDB.Index, embeddingModel string) *Ingestor {
	return &Ingestor{
		embedder: e,
		index:    index,
		model:    embeddingModel,
		logger:   logger.NewLogger("Document Ingestion"),
	}
}

func (ing *Ingestor) Ingest(ctx context.Context, doc docModel.Document) (Result, error) {
	log := ing.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", doc.Id)
	log.Debug("Processing document", "filename", doc.Name, "path", doc.SourcePath)

	docType := getDocType(doc.SourcePath)
	if docType == docModel.ERR {
		return Result{}, fmt.Errorf("%w: unsupported file type %q", ErrExtraction, doc.SourcePath)
	}

	text, pageCount, err := extractText(doc.SourcePath, docType)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyDocument
	}
	log.Debug("Extracted document text", "pages", pageCount, "characters", len(text))

	chunks := PrepareChunks(text, doc, pageCount, ing.model)
	if len(chunks) == 0 {
		return Result{}, ErrNoChunks
	}
	log.Debug("Split document", "chunks", len(chunks))

	if err := ing.index.EnsureNamespace(ctx, doc.Id); err != nil {
		return Result{}, fmt.Errorf("creating namespace: %w", err)
	}

	if err := BatchIngest(ctx, doc.Id, chunks, ing.index, ing.embedder); err != nil {
		return Result{}, err
	}

	return Result{ChunkCount: len(chunks), PageCount: pageCount}, nil
}
