package api

import "time"

type DocumentResponse struct {
	Id          string    `json:"id" example:"9f2c31f8-4589-4c1c-9116-5cfa1fca8d43"`
	Name        string    `json:"name" example:"handbook.pdf"`
	ContentType string    `json:"content_type" example:"application/pdf"`
	Ingest      string    `json:"ingest_status" example:"ready"`
	ChunkCount  int       `json:"chunk_count,omitempty"`
	PageCount   int       `json:"page_count,omitempty"`
	IngestError string    `json:"ingest_error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

type ConversationResponse struct {
	Id         string    `json:"id"`
	DocumentId string    `json:"pdf_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type ConversationListResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}

type MessageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Truncated bool      `json:"truncated,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageListResponse struct {
	Messages []MessageResponse `json:"messages"`
}

type ErrorResponse struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"pdf_id is required"`
	Id      string `json:"id,omitempty"`
}

// requests---------------------

type ChatMessageRequest struct {
	Input string `json:"input" validate:"required"`
}

type CreateConversationRequest struct {
	DocumentId string `json:"pdf_id" validate:"required"`
}

// StreamChunk is one SSE data payload during a streamed chat turn.
type StreamChunk struct {
	Content string `json:"content"`
}

type StreamError struct {
	Error string `json:"error"`
}
