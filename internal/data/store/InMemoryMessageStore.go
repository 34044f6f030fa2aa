package store

import (
	"context"
	"errors"
	"sync"

	"github.com/nkumar/docchat/internal/domain/chatModel"
)

// InMemoryMessageStore mirrors RedisMessageStore for when redis is offline.
type InMemoryMessageStore struct {
	lock          *sync.RWMutex
	conversations map[string]chatModel.Conversation
	messages      map[string][]chatModel.Message
	byDocument    map[string][]string
}

func InitInMemoryMessageStore() *InMemoryMessageStore {
	return &InMemoryMessageStore{
		lock:          new(sync.RWMutex),
		conversations: make(map[string]chatModel.Conversation),
		messages:      make(map[string][]chatModel.Message),
		byDocument:    make(map[string][]string),
	}
}

func (store *InMemoryMessageStore) CreateConversation(ctx context.Context, conversation chatModel.Conversation) error {
	store.lock.Lock()
	defer store.lock.Unlock()
	store.conversations[conversation.Id] = conversation
	store.byDocument[conversation.DocumentId] = append(store.byDocument[conversation.DocumentId], conversation.Id)
	return nil
}

func (store *InMemoryMessageStore) GetConversation(ctx context.Context, id string) (chatModel.Conversation, bool) {
	store.lock.RLock()
	defer store.lock.RUnlock()
	conversation, ok := store.conversations[id]
	return conversation, ok
}

func (store *InMemoryMessageStore) ListConversations(ctx context.Context, documentId string) ([]chatModel.Conversation, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()
	ids := store.byDocument[documentId]
	conversations := make([]chatModel.Conversation, 0, len(ids))
	for _, id := range ids {
		if conversation, ok := store.conversations[id]; ok {
			conversations = append(conversations, conversation)
		}
	}
	return conversations, nil
}

func (store *InMemoryMessageStore) AppendMessage(ctx context.Context, message chatModel.Message) error {
	store.lock.Lock()
	defer store.lock.Unlock()
	if _, ok := store.conversations[message.ConversationId]; !ok {
		return errors.New("unknown conversation")
	}
	store.messages[message.ConversationId] = append(store.messages[message.ConversationId], message)
	return nil
}

func (store *InMemoryMessageStore) GetMessages(ctx context.Context, conversationId string) ([]chatModel.Message, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()
	stored := store.messages[conversationId]
	messages := make([]chatModel.Message, len(stored))
	copy(messages, stored)
	return messages, nil
}

func (store *InMemoryMessageStore) DeleteConversations(ctx context.Context, documentId string) error {
	store.lock.Lock()
	defer store.lock.Unlock()
	for _, id := range store.byDocument[documentId] {
		delete(store.conversations, id)
		delete(store.messages, id)
	}
	delete(store.byDocument, documentId)
	return nil
}
