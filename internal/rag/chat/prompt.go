package chat

import (
	"fmt"
	"strings"

	"github.com/nkumar/docchat/internal/domain/chatModel"
	"github.com/nkumar/docchat/internal/rag/retriever"
)

const systemInstruction = "You are a helpful assistant answering questions based on the provided document context. Use ONLY the information from the context to answer. If the answer is not in the context, say so."

// assemblePrompt builds the exact message list handed to the provider:
// system instruction, prior history verbatim and in order, then a single user
// message carrying the retrieved context and the question.
func assemblePrompt(history []chatModel.Entry, docs []retriever.Result, question string) []chatModel.Entry {
	messages := make([]chatModel.Entry, 0, len(history)+2)
	messages = append(messages, chatModel.Entry{
		Role:    chatModel.RoleSystem,
		Content: systemInstruction,
	})
	messages = append(messages, history...)

	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.Text)
	}
	context := strings.Join(texts, "\n\n")

	messages = append(messages, chatModel.Entry{
		Role: chatModel.RoleUser,
		Content: fmt.Sprintf(
			"Context from document:\n%s\n\nQuestion: %s\n\nPlease answer based on the context above.",
			context, question,
		),
	})
	return messages
}
