package chatModel

import (
	"context"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole normalizes a stored role string; anything unrecognized is treated
// as a user turn so old records never break prompt assembly.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleSystem, RoleUser, RoleAssistant:
		return Role(s)
	default:
		return RoleUser
	}
}

// Entry is one role-tagged line of dialogue as fed to the model.
type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Message is a persisted conversation turn. Immutable once stored.
type Message struct {
	Id             string    `json:"id"`
	ConversationId string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Truncated      bool      `json:"truncated,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (m Message) Entry() Entry {
	return Entry{Role: m.Role, Content: m.Content}
}

type Conversation struct {
	Id         string    `json:"id"`
	DocumentId string    `json:"document_id"`
	UserId     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// MessageStore persists conversations and their ordered message sequences.
// GetMessages returns messages in ascending creation order; that order is the
// canonical dialogue history.
type MessageStore interface {
	CreateConversation(ctx context.Context, conversation Conversation) error
	GetConversation(ctx context.Context, id string) (Conversation, bool)
	ListConversations(ctx context.Context, documentId string) ([]Conversation, error)
	AppendMessage(ctx context.Context, message Message) error
	GetMessages(ctx context.Context, conversationId string) ([]Message, error)
	DeleteConversations(ctx context.Context, documentId string) error
}
