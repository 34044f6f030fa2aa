package openaiLLM

import (
	"context"
	"fmt"

	"github.com/nkumar/docchat/internal/config"
	"github.com/nkumar/docchat/internal/customHttpClient"
	"github.com/nkumar/docchat/internal/domain/chatModel"
	"github.com/nkumar/docchat/internal/rag/llm"
	"github.com/nkumar/docchat/pkg/logger"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type llmClient struct {
	api       openai.Client
	modelName string
	streaming bool
	logger    *logger.Logger
}

// NewClient builds the OpenAI-compatible provider, selected when
// LLM_PROVIDER=openai.
func NewClient(modelName string, apikey string, streaming bool) (llm.Provider, error) {
	log := logger.NewLogger("llm_openai")

	if apikey == "" {
		return nil, fmt.Errorf("%w: openai API key is missing", config.ErrConfiguration)
	}

	api := openai.NewClient(
		option.WithAPIKey(apikey),
		option.WithHTTPClient(customHttpClient.Pooled()),
	)

	log.Info("OpenAI client created", "model", modelName, "streaming", streaming)
	return &llmClient{api: api, modelName: modelName, streaming: streaming, logger: log}, nil
}

func (c *llmClient) Streaming() bool {
	return c.streaming
}

func (c *llmClient) Invoke(ctx context.Context, messages []chatModel.Entry) (string, error) {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	completion, err := c.api.Chat.Completions.New(ctx, c.params(messages))
	if err != nil {
		log.Error("OpenAI completion failed", "error", err)
		return "", fmt.Errorf("%w: %v", llm.ErrGeneration, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: response contains no choices", llm.ErrGeneration)
	}
	return completion.Choices[0].Message.Content, nil
}

func (c *llmClient) Stream(ctx context.Context, messages []chatModel.Entry, emit func(string) error) error {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	stream := c.api.Chat.Completions.NewStreaming(ctx, c.params(messages))
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			if err := emit(delta); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		log.Error("OpenAI stream failed", "error", err)
		return fmt.Errorf("%w: %v", llm.ErrGeneration, err)
	}
	return nil
}

func (c *llmClient) params(messages []chatModel.Entry) openai.ChatCompletionNewParams {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case chatModel.RoleSystem:
			converted = append(converted, openai.SystemMessage(m.Content))
		case chatModel.RoleAssistant:
			converted = append(converted, openai.AssistantMessage(m.Content))
		default:
			converted = append(converted, openai.UserMessage(m.Content))
		}
	}
	return openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.modelName),
		Messages: converted,
	}
}
