package memory

import (
	"context"

	"github.com/nkumar/docchat/internal/domain/chatModel"
)

// Loader replays a conversation's prior turns as role-tagged entries.
type Loader interface {
	LoadHistory(ctx context.Context, conversationId string) ([]chatModel.Entry, error)
}

// Builder reads history from the message store. Pure read, no side effects;
// a brand-new conversation yields an empty slice.
type Builder struct {
	store chatModel.MessageStore
}

func NewBuilder(store chatModel.MessageStore) *Builder {
	return &Builder{store: store}
}

func (b *Builder) LoadHistory(ctx context.Context, conversationId string) ([]chatModel.Entry, error) {
	messages, err := b.store.GetMessages(ctx, conversationId)
	if err != nil {
		return nil, err
	}

	history := make([]chatModel.Entry, 0, len(messages))
	for _, m := range messages {
		history = append(history, m.Entry())
	}
	return history, nil
}
