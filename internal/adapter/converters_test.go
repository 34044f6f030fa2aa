package adapter

import (
	"testing"
	"time"

	"github.com/nkumar/docchat/internal/domain/chatModel"
	"github.com/nkumar/docchat/internal/domain/docModel"
)

func TestToDocumentResponse(t *testing.T) {
	created := time.Now().Truncate(time.Second)
	doc := docModel.Document{
		Id:          "doc-1",
		Name:        "handbook.pdf",
		ContentType: "application/pdf",
		Ingest:      docModel.IngestReady,
		ChunkCount:  12,
		PageCount:   4,
		CreatedAt:   created,
	}

	got := ToDocumentResponse(doc)
	if got.Id != "doc-1" || got.Name != "handbook.pdf" {
		t.Errorf("Identity fields wrong: %+v", got)
	}
	if got.ContentType != "application/pdf" {
		t.Errorf("ContentType = %q, want the MIME type", got.ContentType)
	}
	if got.Ingest != "ready" || got.ChunkCount != 12 || got.PageCount != 4 {
		t.Errorf("Ingest fields wrong: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
}

func TestToMessageResponse(t *testing.T) {
	message := chatModel.Message{
		Role:      chatModel.RoleAssistant,
		Content:   "partial answer",
		Truncated: true,
	}
	got := ToMessageResponse(message)
	if got.Role != "assistant" || got.Content != "partial answer" || !got.Truncated {
		t.Errorf("Unexpected response: %+v", got)
	}
}
