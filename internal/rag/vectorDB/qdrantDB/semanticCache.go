package qdrantDB

import (
	"context"
	"time"

	"github.com/nkumar/docchat/internal/config"
	"github.com/qdrant/go-client/qdrant"
)

// All documents share one cache collection; entries are partitioned by a
// source_doc_id payload filter instead of per-document collections.
const answerCacheCollection = "semantic-cache"

func (db *ClientHolder) ensureCacheCollection(ctx context.Context) error {
	exists, err := db.qObj.CollectionExists(ctx, answerCacheCollection)
	if err != nil || exists {
		return err
	}
	return db.qObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: answerCacheCollection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

// GetCachedAnswer looks for a previously answered question close enough to
// the query vector. Scoped to one document so answers never leak across
// uploads.
func (db *ClientHolder) GetCachedAnswer(ctx context.Context, documentId string, queryVector []float32) (string, bool, error) {
	loggr := db.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", documentId)

	exists, err := db.qObj.CollectionExists(ctx, answerCacheCollection)
	if err != nil {
		return "", false, err
	}
	if !exists {
		// nothing cached yet
		return "", false, nil
	}

	searchResult, err := db.qObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: answerCacheCollection,
		Query:          qdrant.NewQuery(queryVector...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("source_doc_id", documentId)},
		},
		Limit:       qdrant.PtrOf(uint64(1)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Cache query failed", "error", err)
		return "", false, err
	}
	if len(searchResult) == 0 {
		return "", false, nil
	}

	loggr.Debug("Nearest cached answer", "score", searchResult[0].Score)
	if searchResult[0].Score < config.CacheSimilarityCutoff {
		return "", false, nil
	}

	loggr.Info("Answer cache hit")
	return searchResult[0].Payload["answer"].GetStringValue(), true, nil
}

// SaveToCache stores a finished answer under its question embedding.
func (db *ClientHolder) SaveToCache(ctx context.Context, documentId string, id string, vector []float32, answer string) error {
	loggr := db.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", documentId)

	if err := db.ensureCacheCollection(ctx); err != nil {
		loggr.Error("Answer cache collection creation failed", "error", err)
		return err
	}

	_, err := db.qObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: answerCacheCollection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"answer":        answer,
					"source_doc_id": documentId,
					"timestamp":     time.Now().Unix(),
				}),
			},
		},
	})
	if err != nil {
		loggr.Error("Saving answer to cache failed", "error", err)
	}
	return err
}

// dropCachedAnswers removes a deleted document's cache entries so its answers
// cannot resurface.
func (db *ClientHolder) dropCachedAnswers(ctx context.Context, documentId string) error {
	exists, err := db.qObj.CollectionExists(ctx, answerCacheCollection)
	if err != nil || !exists {
		return err
	}
	_, err = db.qObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: answerCacheCollection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("source_doc_id", documentId)},
		}),
	})
	return err
}
