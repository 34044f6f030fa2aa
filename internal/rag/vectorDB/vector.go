package vectorDB

import (
	"context"

	"github.com/nkumar/docchat/internal/domain/docModel"
)

// Match is one scored retrieval hit with its original text payload.
type Match struct {
	Text     string
	Score    float32
	Metadata map[string]string
}

// Index partitions vectors into per-document namespaces. A namespace only ever
// holds vectors derived from its own document's chunks.
type Index interface {
	EnsureNamespace(ctx context.Context, documentId string) error
	HasNamespace(ctx context.Context, documentId string) (bool, error)
	UpsertBatch(ctx context.Context, documentId string, chunks []docModel.DocChunk, vectors [][]float32) error
	Query(ctx context.Context, documentId string, vector []float32, topK int) ([]Match, error)
	DropNamespace(ctx context.Context, documentId string) error
}

// AnswerCache stores finished answers keyed by their question embedding,
// scoped per document. A backend that cannot cache simply does not
// implement it.
type AnswerCache interface {
	GetCachedAnswer(ctx context.Context, documentId string, queryVector []float32) (string, bool, error)
	SaveToCache(ctx context.Context, documentId string, id string, vector []float32, answer string) error
}
