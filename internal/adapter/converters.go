package adapter

import (
	"github.com/nkumar/docchat/internal/api"
	"github.com/nkumar/docchat/internal/domain/chatModel"
	"github.com/nkumar/docchat/internal/domain/docModel"
)

func ToDocumentResponse(doc docModel.Document) api.DocumentResponse {
	return api.DocumentResponse{
		Id:          doc.Id,
		Name:        doc.Name,
		ContentType: doc.ContentType,
		Ingest:      string(doc.Ingest),
		ChunkCount:  doc.ChunkCount,
		PageCount:   doc.PageCount,
		IngestError: doc.IngestError,
		CreatedAt:   doc.CreatedAt,
	}
}

func ToDocumentListResponse(docs []docModel.Document) api.DocumentListResponse {
	out := api.DocumentListResponse{Documents: make([]api.DocumentResponse, 0, len(docs))}
	for _, doc := range docs {
		out.Documents = append(out.Documents, ToDocumentResponse(doc))
	}
	return out
}

func ToConversationResponse(conversation chatModel.Conversation) api.ConversationResponse {
	return api.ConversationResponse{
		Id:         conversation.Id,
		DocumentId: conversation.DocumentId,
		CreatedAt:  conversation.CreatedAt,
	}
}

func ToConversationListResponse(conversations []chatModel.Conversation) api.ConversationListResponse {
	out := api.ConversationListResponse{Conversations: make([]api.ConversationResponse, 0, len(conversations))}
	for _, conversation := range conversations {
		out.Conversations = append(out.Conversations, ToConversationResponse(conversation))
	}
	return out
}

func ToMessageResponse(message chatModel.Message) api.MessageResponse {
	return api.MessageResponse{
		Role:      string(message.Role),
		Content:   message.Content,
		Truncated: message.Truncated,
		CreatedAt: message.CreatedAt,
	}
}

func ToMessageListResponse(messages []chatModel.Message) api.MessageListResponse {
	out := api.MessageListResponse{Messages: make([]api.MessageResponse, 0, len(messages))}
	for _, message := range messages {
		out.Messages = append(out.Messages, ToMessageResponse(message))
	}
	return out
}

func BadRequest(id string, error string, code int) api.ErrorResponse {
	return api.ErrorResponse{
		Code:    code,
		Message: error,
		Id:      id,
	}
}
