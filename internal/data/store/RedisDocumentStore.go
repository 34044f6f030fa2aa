package store

import (
	"context"
	"encoding/json"

	"github.com/nkumar/docchat/internal/config"
	"github.com/nkumar/docchat/internal/data/redisStore"
	"github.com/nkumar/docchat/internal/domain/docModel"
	"github.com/nkumar/docchat/pkg/logger"
)

const (
	documentKeyPrefix = "document:"
	documentSetKey    = "documents"
)

type RedisDocumentStore struct {
	store  *redisStore.Store
	logger *logger.Logger
}

func GetRedisDocumentStore(ctx context.Context) *RedisDocumentStore {
	inner := redisStore.GetRedisStore(ctx, config.RedisDocumentStore)
	if inner == nil {
		return nil
	}
	return NewRedisDocumentStore(inner)
}

func NewRedisDocumentStore(inner *redisStore.Store) *RedisDocumentStore {
	return &RedisDocumentStore{
		store:  inner,
		logger: logger.NewLogger("DocumentStore"),
	}
}

func (s *RedisDocumentStore) SaveDocument(ctx context.Context, doc docModel.Document) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", doc.Id)

	data, err := json.Marshal(doc)
	if err != nil {
		log.Error("Error marshalling document", "error", err)
		return err
	}
	if err := s.store.Set(ctx, documentKeyPrefix+doc.Id, data, 0); err != nil {
		log.Error("Error saving document", "error", err)
		return err
	}
	return s.store.SetAdd(ctx, documentSetKey, doc.Id)
}

func (s *RedisDocumentStore) GetDocument(ctx context.Context, id string) (docModel.Document, bool) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", id)

	raw, err := s.store.Get(ctx, documentKeyPrefix+id)
	if s.store.IsNil(err) {
		return docModel.Document{}, false
	}
	if err != nil {
		log.Error("Error reading document", "error", err)
		return docModel.Document{}, false
	}

	var doc docModel.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		log.Error("Error unmarshalling document", "error", err)
		return docModel.Document{}, false
	}
	return doc, true
}

func (s *RedisDocumentStore) ListDocuments(ctx context.Context) ([]docModel.Document, error) {
	ids, err := s.store.SetMembers(ctx, documentSetKey)
	if err != nil {
		return nil, err
	}

	docs := make([]docModel.Document, 0, len(ids))
	for _, id := range ids {
		if doc, found := s.GetDocument(ctx, id); found {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *RedisDocumentStore) DeleteDocument(ctx context.Context, id string) error {
	if err := s.store.Del(ctx, documentKeyPrefix+id); err != nil {
		return err
	}
	return s.store.SetRemove(ctx, documentSetKey, id)
}

func (s *RedisDocumentStore) SetIngestState(ctx context.Context, id string, state docModel.IngestState, chunkCount int, pageCount int, ingestError string) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", id)

	doc, found := s.GetDocument(ctx, id)
	if !found {
		log.Warn("Setting ingest state on missing document", "state", state)
		return nil
	}

	doc.Ingest = state
	doc.ChunkCount = chunkCount
	doc.PageCount = pageCount
	doc.IngestError = ingestError
	return s.SaveDocument(ctx, doc)
}
