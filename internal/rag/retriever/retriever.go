package retriever

import (
	"context"
	"errors"
	"fmt"

	"github.com/nkumar/docchat/internal/config"
	"github.com/nkumar/docchat/internal/rag/embedding"
	"github.com/nkumar/docchat/internal/rag/vectorDB"
	"github.com/nkumar/docchat/pkg/logger"
)

// ErrRetrieval marks index connectivity or auth failures. Distinct from an
// empty result, which is a legitimate outcome.
var ErrRetrieval = errors.New("retrieval failed")

// Result is one retrieved chunk: original text plus the metadata it was
// ingested with.
type Result struct {
	Text     string
	Metadata map[string]string
}

// Searcher is what the chat orchestrator consumes.
type Searcher interface {
	Retrieve(ctx context.Context, documentId string, query string, k int) ([]Result, error)
}

// Retriever answers similarity queries scoped to one document's namespace.
type Retriever struct {
	index    vectorDB.Index
	embedder embedding.Embedder
	logger   *logger.Logger
}

func New(index vectorDB.Index, embedder embedding.Embedder) *Retriever {
	return &Retriever{
		index:    index,
		embedder: embedder,
		logger:   logger.NewLogger("Retriever"),
	}
}

func (r *Retriever) Retrieve(ctx context.Context, documentId string, query string, k int) ([]Result, error) {
	log := r.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", documentId)
	if k <= 0 {
		k = config.RetrievalTopK
	}

	exists, err := r.index.HasNamespace(ctx, documentId)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	if !exists {
		// nothing ingested for this document yet
		log.Debug("Namespace missing, returning empty result")
		return []Result{}, nil
	}

	vector, err := r.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	matches, err := r.index.Query(ctx, documentId, vector, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{Text: m.Text, Metadata: m.Metadata})
	}
	log.Debug("Retrieved chunks", "count", len(results))
	return results, nil
}
