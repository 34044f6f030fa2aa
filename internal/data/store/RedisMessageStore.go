package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nkumar/docchat/internal/config"
	"github.com/nkumar/docchat/internal/data/redisStore"
	"github.com/nkumar/docchat/internal/domain/chatModel"
	"github.com/nkumar/docchat/pkg/logger"
)

const (
	conversationKeyPrefix = "conversation:"
	messagesKeyPrefix     = "messages:"
	docConversationsKey   = "document-conversations:"
)

type RedisMessageStore struct {
	store  *redisStore.Store
	logger *logger.Logger
}

func GetRedisMessageStore(ctx context.Context) *RedisMessageStore {
	inner := redisStore.GetRedisStore(ctx, config.RedisMessageStore)
	if inner == nil {
		return nil
	}
	return NewRedisMessageStore(inner)
}

func NewRedisMessageStore(inner *redisStore.Store) *RedisMessageStore {
	return &RedisMessageStore{
		store:  inner,
		logger: logger.NewLogger("MessageStore"),
	}
}

func (s *RedisMessageStore) CreateConversation(ctx context.Context, conversation chatModel.Conversation) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "conversationId", conversation.Id)

	data, err := json.Marshal(conversation)
	if err != nil {
		log.Error("Error marshalling conversation", "error", err)
		return err
	}
	if err := s.store.Set(ctx, conversationKeyPrefix+conversation.Id, data, 0); err != nil {
		log.Error("Error saving conversation", "error", err)
		return err
	}
	return s.store.SetAdd(ctx, docConversationsKey+conversation.DocumentId, conversation.Id)
}

func (s *RedisMessageStore) GetConversation(ctx context.Context, id string) (chatModel.Conversation, bool) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "conversationId", id)

	raw, err := s.store.Get(ctx, conversationKeyPrefix+id)
	if s.store.IsNil(err) {
		return chatModel.Conversation{}, false
	}
	if err != nil {
		log.Error("Error reading conversation", "error", err)
		return chatModel.Conversation{}, false
	}

	var conversation chatModel.Conversation
	if err := json.Unmarshal([]byte(raw), &conversation); err != nil {
		log.Error("Error unmarshalling conversation", "error", err)
		return chatModel.Conversation{}, false
	}
	return conversation, true
}

func (s *RedisMessageStore) ListConversations(ctx context.Context, documentId string) ([]chatModel.Conversation, error) {
	ids, err := s.store.SetMembers(ctx, docConversationsKey+documentId)
	if err != nil {
		return nil, err
	}

	conversations := make([]chatModel.Conversation, 0, len(ids))
	for _, id := range ids {
		if conversation, found := s.GetConversation(ctx, id); found {
			conversations = append(conversations, conversation)
		}
	}
	return conversations, nil
}

// AppendMessage pushes onto the conversation's list; list order is the
// canonical message order.
func (s *RedisMessageStore) AppendMessage(ctx context.Context, message chatModel.Message) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "conversationId", message.ConversationId)

	if _, found := s.GetConversation(ctx, message.ConversationId); !found {
		err := errors.New("unknown conversation")
		log.Error("Failed validation before saving message", "error", err)
		return err
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Error("Error marshalling message", "error", err)
		return err
	}
	if err := s.store.ListPush(ctx, messagesKeyPrefix+message.ConversationId, data); err != nil {
		log.Error("Error saving message", "error", err)
		return err
	}
	log.Debug("Saved message")
	return nil
}

func (s *RedisMessageStore) GetMessages(ctx context.Context, conversationId string) ([]chatModel.Message, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "conversationId", conversationId)

	raw, err := s.store.ListGetAll(ctx, messagesKeyPrefix+conversationId)
	if err != nil {
		log.Error("Error getting messages", "error", err)
		return nil, err
	}

	messages := make([]chatModel.Message, 0, len(raw))
	for _, item := range raw {
		var message chatModel.Message
		if err := json.Unmarshal([]byte(item), &message); err != nil {
			log.Error("Error unmarshalling message", "error", err)
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func (s *RedisMessageStore) DeleteConversations(ctx context.Context, documentId string) error {
	ids, err := s.store.SetMembers(ctx, docConversationsKey+documentId)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.store.Del(ctx, conversationKeyPrefix+id, messagesKeyPrefix+id); err != nil {
			return err
		}
	}
	return s.store.Del(ctx, docConversationsKey+documentId)
}
