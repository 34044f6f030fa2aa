package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nkumar/docchat/internal/adapter"
	"github.com/nkumar/docchat/internal/adapter/utils"
	"github.com/nkumar/docchat/internal/api"
	"github.com/nkumar/docchat/internal/config"
	"github.com/nkumar/docchat/internal/domain/chatModel"
	"github.com/nkumar/docchat/internal/domain/docModel"
	"github.com/nkumar/docchat/internal/metrics"
	"github.com/nkumar/docchat/internal/rag/chat"
)

// CreateConversationHandler godoc
// @Summary      Start a conversation over a document
// @Tags         Conversations
// @Accept       json
// @Produce      json
// @Param        pdf_id   query     string                         false  "Document ID, alternative to the body field"
// @Param        request  body      api.CreateConversationRequest  false  "Document to chat about"
// @Success      201      {object}  api.ConversationResponse
// @Failure      400      {object}  api.ErrorResponse  "pdf_id missing"
// @Failure      404      {object}  api.ErrorResponse  "Document not found"
// @Router       /conversations [post]
func CreateConversationHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", "remoteAddr", r.RemoteAddr)
		return
	}

	requestData := api.CreateConversationRequest{DocumentId: r.URL.Query().Get("pdf_id")}
	defer closeBody(r.Body)
	if requestData.DocumentId == "" {
		if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || requestData.DocumentId == "" {
			logRH.Warn("Bad conversation request", "err", err)
			WriteErrorResponse(w, http.StatusBadRequest, "", "pdf_id is required")
			return
		}
	}

	ctx := r.Context()
	if _, found := handlerInstance.documents.GetDocument(ctx, requestData.DocumentId); !found {
		WriteErrorResponse(w, http.StatusNotFound, requestData.DocumentId, "Document not found")
		return
	}

	conversation := chatModel.Conversation{
		Id:         utils.GetNewUUID(),
		DocumentId: requestData.DocumentId,
		CreatedAt:  time.Now(),
	}
	if err := handlerInstance.messages.CreateConversation(ctx, conversation); err != nil {
		logRH.Error("Failed to create conversation", "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}
	writeJsonResponse(w, http.StatusCreated, adapter.ToConversationResponse(conversation))
}

// ListConversationsHandler godoc
// @Summary      List conversations for a document
// @Tags         Conversations
// @Produce      json
// @Param        pdf_id  query     string  true  "Document ID"
// @Success      200     {object}  api.ConversationListResponse
// @Failure      400     {object}  api.ErrorResponse  "pdf_id missing"
// @Router       /conversations [get]
func ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", "remoteAddr", r.RemoteAddr)
		return
	}

	documentId := r.URL.Query().Get("pdf_id")
	if documentId == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "pdf_id is required")
		return
	}
	conversations, err := handlerInstance.messages.ListConversations(r.Context(), documentId)
	if err != nil {
		logRH.Error("Failed to list conversations", "documentId", documentId, "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToConversationListResponse(conversations))
}

// GetMessagesHandler godoc
// @Summary      Get messages of a conversation in send order
// @Tags         Conversations
// @Produce      json
// @Param        id   path      string  true  "Conversation ID"
// @Success      200  {object}  api.MessageListResponse
// @Failure      404  {object}  api.ErrorResponse  "Conversation not found"
// @Router       /conversations/{id}/messages [get]
func GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", "remoteAddr", r.RemoteAddr)
		return
	}

	conversationId := utils.GetChiURLParam(r, "id")
	ctx := r.Context()
	if _, found := handlerInstance.messages.GetConversation(ctx, conversationId); !found {
		WriteErrorResponse(w, http.StatusNotFound, conversationId, "Conversation not found")
		return
	}
	messages, err := handlerInstance.messages.GetMessages(ctx, conversationId)
	if err != nil {
		logRH.Error("Failed to load messages", "conversationId", conversationId, "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, conversationId, "Storage error")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToMessageListResponse(messages))
}

// PostMessageHandler godoc
// @Summary      Send a message and get the assistant's answer
// @Description  Runs one retrieval-augmented chat turn. With ?stream=true the answer arrives as SSE chunks, otherwise as one JSON message.
// @Tags         Conversations
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true   "Conversation ID"
// @Param        stream   query     string                  false  "Set to true for SSE streaming"
// @Param        request  body      api.ChatMessageRequest  true   "User input"
// @Success      200      {object}  api.MessageResponse  "Assistant answer (blocking mode)"
// @Failure      400      {object}  api.ErrorResponse    "Empty input"
// @Failure      404      {object}  api.ErrorResponse    "Conversation not found"
// @Failure      409      {object}  api.ErrorResponse    "Document not ready"
// @Router       /conversations/{id}/messages [post]
func PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", "remoteAddr", r.RemoteAddr)
		return
	}

	conversationId := utils.GetChiURLParam(r, "id")
	streaming := r.URL.Query().Get("stream") == "true"

	var requestData api.ChatMessageRequest
	defer closeBody(r.Body)
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || requestData.Input == "" {
		logRH.Warn("Bad chat message request", "err", err)
		WriteErrorResponse(w, http.StatusBadRequest, conversationId, "input is required")
		return
	}

	ctx := r.Context()
	conversation, found := handlerInstance.messages.GetConversation(ctx, conversationId)
	if !found {
		WriteErrorResponse(w, http.StatusNotFound, conversationId, "Conversation not found")
		return
	}
	doc, found := handlerInstance.documents.GetDocument(ctx, conversation.DocumentId)
	if !found {
		WriteErrorResponse(w, http.StatusNotFound, conversation.DocumentId, "Document not found")
		return
	}
	if doc.Ingest != docModel.IngestReady {
		WriteErrorResponse(w, http.StatusConflict, doc.Id, "Document ingestion is "+string(doc.Ingest))
		return
	}

	// One turn at a time per conversation, so history stays coherent.
	handlerInstance.turnLocks.acquire(conversationId)
	defer handlerInstance.turnLocks.release(conversationId)

	start := time.Now()
	mode := "blocking"
	if streaming {
		mode = "streaming"
	}

	if err := appendMessage(ctx, conversationId, chatModel.RoleUser, requestData.Input, false); err != nil {
		logRH.Error("Failed to persist user message", "conversationId", conversationId, "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, conversationId, "Storage error")
		return
	}

	session, err := handlerInstance.ragService.BuildChat(ctx, chat.BuildArgs{
		ConversationId: conversationId,
		DocumentId:     conversation.DocumentId,
		Streaming:      streaming,
	})
	if err != nil {
		logRH.Error("Failed to build chat session", "conversationId", conversationId, "err", err)
		metrics.CaptureChatTurnMetrics(mode, "error", time.Since(start))
		WriteErrorResponse(w, http.StatusInternalServerError, conversationId, "Chat error")
		return
	}

	if streaming {
		runStreamingTurn(w, r, session, conversationId, requestData.Input, start)
		return
	}

	turnCtx, cancel := context.WithTimeout(ctx, config.ChatTurnTimeout)
	defer cancel()

	answer, err := session.Run(turnCtx, requestData.Input)
	if err != nil {
		logRH.Error("Chat turn failed", "conversationId", conversationId, "err", err)
		metrics.CaptureChatTurnMetrics(mode, "error", time.Since(start))
		WriteErrorResponse(w, http.StatusInternalServerError, conversationId, "Chat error")
		return
	}

	if err := appendMessage(ctx, conversationId, chatModel.RoleAssistant, answer, false); err != nil {
		logRH.Error("Failed to persist assistant message", "conversationId", conversationId, "err", err)
	}
	metrics.CaptureChatTurnMetrics(mode, "ok", time.Since(start))
	writeJsonResponse(w, http.StatusOK, api.MessageResponse{
		Role:      string(chatModel.RoleAssistant),
		Content:   answer,
		CreatedAt: time.Now(),
	})
}

func runStreamingTurn(w http.ResponseWriter, r *http.Request, session *chat.Session, conversationId string, input string, start time.Time) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		logRH.Error("Response writer does not support streaming", "conversationId", conversationId)
		WriteErrorResponse(w, http.StatusInternalServerError, conversationId, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	turnCtx, cancel := context.WithTimeout(r.Context(), config.ChatTurnTimeout)
	defer cancel()

	var answer string
	var clientGone bool
	streamErr := session.Stream(turnCtx, input, func(fragment string) error {
		payload, err := json.Marshal(api.StreamChunk{Content: fragment})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			// a failed write means nobody is reading anymore
			clientGone = true
			return err
		}
		flusher.Flush()
		answer += fragment
		return nil
	})

	// A client that walked away mid-stream still leaves a usable history:
	// whatever was sent is persisted and flagged as cut short.
	if streamErr != nil && (clientGone || errors.Is(r.Context().Err(), context.Canceled)) {
		logRH.Warn("Client cancelled stream", "conversationId", conversationId)
		if answer != "" {
			persistAssistantMessage(conversationId, answer, true)
		}
		metrics.CaptureChatTurnMetrics("streaming", "cancelled", time.Since(start))
		return
	}

	if streamErr != nil {
		logRH.Error("Stream failed", "conversationId", conversationId, "err", streamErr)
		if payload, err := json.Marshal(api.StreamError{Error: "generation failed"}); err == nil {
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
		metrics.CaptureChatTurnMetrics("streaming", "error", time.Since(start))
		return
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()

	if err := appendMessage(r.Context(), conversationId, chatModel.RoleAssistant, answer, false); err != nil {
		logRH.Error("Failed to persist assistant message", "conversationId", conversationId, "err", err)
	}
	metrics.CaptureChatTurnMetrics("streaming", "ok", time.Since(start))
}

func appendMessage(ctx context.Context, conversationId string, role chatModel.Role, content string, truncated bool) error {
	return handlerInstance.messages.AppendMessage(ctx, chatModel.Message{
		Id:             utils.GetNewUUID(),
		ConversationId: conversationId,
		Role:           role,
		Content:        content,
		Truncated:      truncated,
		CreatedAt:      time.Now(),
	})
}

// persistAssistantMessage writes with a fresh context, the request context is
// already dead when the client cancels.
func persistAssistantMessage(conversationId string, content string, truncated bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := appendMessage(ctx, conversationId, chatModel.RoleAssistant, content, truncated); err != nil {
		logRH.Error("Failed to persist truncated message", "conversationId", conversationId, "err", err)
	}
}

func closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		logRH.Error("Couldn't close the request body", "err", err)
	}
}
