package store

import (
	"context"
	"sync"

	"github.com/nkumar/docchat/internal/domain/docModel"
	"github.com/nkumar/docchat/pkg/logger"
)

var inMemLogger = logger.NewLogger("InMemoryStore")

// InMemoryDocumentStore is the fallback when redis is offline. State dies
// with the process.
type InMemoryDocumentStore struct {
	lock *sync.RWMutex
	docs map[string]docModel.Document
}

func InitInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{
		lock: new(sync.RWMutex),
		docs: make(map[string]docModel.Document),
	}
}

func (store *InMemoryDocumentStore) SaveDocument(ctx context.Context, doc docModel.Document) error {
	store.lock.Lock()
	defer store.lock.Unlock()
	store.docs[doc.Id] = doc
	return nil
}

func (store *InMemoryDocumentStore) GetDocument(ctx context.Context, id string) (docModel.Document, bool) {
	store.lock.RLock()
	defer store.lock.RUnlock()
	doc, ok := store.docs[id]
	return doc, ok
}

func (store *InMemoryDocumentStore) ListDocuments(ctx context.Context) ([]docModel.Document, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()
	docs := make([]docModel.Document, 0, len(store.docs))
	for _, doc := range store.docs {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (store *InMemoryDocumentStore) DeleteDocument(ctx context.Context, id string) error {
	store.lock.Lock()
	defer store.lock.Unlock()
	delete(store.docs, id)
	return nil
}

func (store *InMemoryDocumentStore) SetIngestState(ctx context.Context, id string, state docModel.IngestState, chunkCount int, pageCount int, ingestError string) error {
	store.lock.Lock()
	defer store.lock.Unlock()
	doc, ok := store.docs[id]
	if !ok {
		inMemLogger.Warn("Setting ingest state on missing document", "documentId", id)
		return nil
	}
	doc.Ingest = state
	doc.ChunkCount = chunkCount
	doc.PageCount = pageCount
	doc.IngestError = ingestError
	store.docs[id] = doc
	return nil
}
