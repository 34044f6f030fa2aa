package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/nkumar/docchat/internal/config"
	"github.com/nkumar/docchat/internal/domain/docModel"
	"github.com/nkumar/docchat/internal/rag/vectorDB"
	"github.com/nkumar/docchat/pkg/logger"
	"github.com/qdrant/go-client/qdrant"
)

var dimension = uint64(config.EmbeddingOutputDimensionality)

// ClientHolder implements vectorDB.Index on top of the qdrant gRPC client.
// Each document id maps to its own collection, which gives us the namespace
// isolation and cheap drop-on-delete the rest of the system relies on.
type ClientHolder struct {
	qObj   *qdrant.Client
	logger *logger.Logger
}

func NewClient(ctx context.Context) (*ClientHolder, error) {
	log := logger.NewLogger("qdrant")

	host := config.Getenv("QDRANT_HOST", config.QdrantHost)
	port, err := strconv.Atoi(config.Getenv("QDRANT_PORT", ""))
	if err != nil {
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		log.Error("could not instantiate qdrant client", "error", err)
		return nil, err
	}

	holder := &ClientHolder{qObj: client, logger: log}
	go holder.closeOnDone(ctx)
	return holder, nil
}

func (db *ClientHolder) closeOnDone(ctx context.Context) {
	<-ctx.Done()
	db.logger.Info("Shutting down qdrant")
	if err := db.qObj.Close(); err != nil {
		db.logger.Error("could not close qdrant", "error", err)
	}
}

func namespaceCollection(documentId string) string {
	return config.NamespacePrefix + documentId
}

func (db *ClientHolder) EnsureNamespace(ctx context.Context, documentId string) error {
	if documentId == "" {
		return errors.New("empty document id")
	}
	name := namespaceCollection(documentId)

	exists, err := db.qObj.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return db.qObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (db *ClientHolder) HasNamespace(ctx context.Context, documentId string) (bool, error) {
	return db.qObj.CollectionExists(ctx, namespaceCollection(documentId))
}

func (db *ClientHolder) UpsertBatch(ctx context.Context, documentId string, chunks []docModel.DocChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ChunkId),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"content":       chunk.Chunk,
				"source_doc_id": chunk.Doc.Id,
				"doc_name":      chunk.Doc.Name,
				"source_path":   chunk.Doc.SourcePath,
				"page_count":    strconv.Itoa(chunk.PageCount),
				"chunk_order":   strconv.Itoa(chunk.ChunkOrder),
				"chunk_id":      chunk.ChunkId,
			}),
		}
	}

	_, err := db.qObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: namespaceCollection(documentId),
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (db *ClientHolder) Query(ctx context.Context, documentId string, vector []float32, topK int) ([]vectorDB.Match, error) {
	loggr := db.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	result, err := db.qObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: namespaceCollection(documentId),
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Error querying qdrant", "error", err)
		return nil, err
	}

	matches := make([]vectorDB.Match, 0, len(result))
	for _, hit := range result {
		matches = append(matches, vectorDB.Match{
			Text:  hit.Payload["content"].GetStringValue(),
			Score: hit.Score,
			Metadata: map[string]string{
				"source_doc_id": hit.Payload["source_doc_id"].GetStringValue(),
				"doc_name":      hit.Payload["doc_name"].GetStringValue(),
				"source_path":   hit.Payload["source_path"].GetStringValue(),
				"page_count":    hit.Payload["page_count"].GetStringValue(),
				"chunk_order":   hit.Payload["chunk_order"].GetStringValue(),
				"chunk_id":      hit.Payload["chunk_id"].GetStringValue(),
			},
		})
	}

	loggr.Debug("qdrant query done", "matches", len(matches))
	return matches, nil
}

func (db *ClientHolder) DropNamespace(ctx context.Context, documentId string) error {
	name := namespaceCollection(documentId)
	exists, err := db.qObj.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := db.qObj.DeleteCollection(ctx, name); err != nil {
		return err
	}
	return db.dropCachedAnswers(ctx, documentId)
}
