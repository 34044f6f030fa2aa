package docModel

import (
	"context"
	"time"
)

type DocType string

var (
	PDF  DocType = "PDF"
	DOCX DocType = "DOCX"
	ERR  DocType = "ERROR"
)

type IngestState string

const (
	IngestPending    IngestState = "pending"
	IngestProcessing IngestState = "processing"
	IngestReady      IngestState = "ready"
	IngestFailed     IngestState = "failed"
)

// Document is identified by an opaque id assigned at upload time. Its vector
// namespace carries the same id and is dropped when the document is deleted.
type Document struct {
	Id          string      `json:"id"`
	Name        string      `json:"name"`
	OwnerId     string      `json:"owner_id"`
	SourcePath  string      `json:"source_path"`
	ContentType string      `json:"content_type"`
	CreatedAt   time.Time   `json:"created_at"`
	Ingest      IngestState `json:"ingest_state"`
	ChunkCount  int         `json:"chunk_count,omitempty"`
	PageCount   int         `json:"page_count,omitempty"`
	IngestError string      `json:"ingest_error,omitempty"`
}

// DocumentStore persists document records and their ingest lifecycle.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc Document) error
	GetDocument(ctx context.Context, id string) (Document, bool)
	ListDocuments(ctx context.Context) ([]Document, error)
	DeleteDocument(ctx context.Context, id string) error
	SetIngestState(ctx context.Context, id string, state IngestState, chunkCount int, pageCount int, ingestError string) error
}

// DocChunk is one bounded span of extracted text. Chunks live only as vectors
// plus payload in the index, never relationally.
type DocChunk struct {
	Doc            Document
	ChunkId        string `json:"chunk_id"`
	Chunk          string `json:"content"`
	PageCount      int    `json:"page_count"`
	ChunkOrder     int    `json:"chunk_order"`
	EmbeddingModel string `json:"embedding_model"`
}
