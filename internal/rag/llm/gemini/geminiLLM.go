package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/nkumar/docchat/internal/config"
	"github.com/nkumar/docchat/internal/domain/chatModel"
	"github.com/nkumar/docchat/internal/rag/llm"
	"github.com/nkumar/docchat/pkg/logger"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
	streaming bool
	logger    *logger.Logger
}

// NewClient builds the Gemini provider. The streaming flag is fixed at
// construction; a non-streaming client serves Stream requests via fallback in
// the orchestrator.
func NewClient(ctx context.Context, modelName string, apikey string, streaming bool) (llm.Provider, error) {
	log := logger.NewLogger("llm_gemini")

	if apikey == "" {
		return nil, fmt.Errorf("%w: gemini API key is missing", config.ErrConfiguration)
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey})
	if err != nil {
		log.Error("Error creating Gemini client", "error", err)
		return nil, err
	}

	log.Info("Gemini client created", "model", modelName, "streaming", streaming)
	return &llmClient{client: c, modelName: modelName, streaming: streaming, logger: log}, nil
}

func (c *llmClient) Streaming() bool {
	return c.streaming
}

func (c *llmClient) Invoke(ctx context.Context, messages []chatModel.Entry) (string, error) {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	prompt, cfg := splitSystemInstruction(messages)
	result, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), cfg)
	if err != nil {
		log.Error("Gemini generate failed", "error", err)
		return "", fmt.Errorf("%w: %v", llm.ErrGeneration, err)
	}
	return result.Text(), nil
}

func (c *llmClient) Stream(ctx context.Context, messages []chatModel.Entry, emit func(string) error) error {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	prompt, cfg := splitSystemInstruction(messages)
	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.modelName, genai.Text(prompt), cfg) {
		if err != nil {
			log.Error("Gemini stream failed", "error", err)
			return fmt.Errorf("%w: %v", llm.ErrGeneration, err)
		}
		if text := resp.Text(); text != "" {
			if err := emit(text); err != nil {
				return err
			}
		}
	}
	return nil
}

// splitSystemInstruction lifts system entries into the Gemini system
// instruction and flattens the rest into a role-tagged transcript, the same
// shape the non-system entries take on the wire for every provider.
func splitSystemInstruction(messages []chatModel.Entry) (string, *genai.GenerateContentConfig) {
	var system []string
	var lines []string
	for _, m := range messages {
		if m.Role == chatModel.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		lines = append(lines, strings.ToUpper(string(m.Role))+": "+m.Content)
	}

	cfg := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(system, "\n")}},
		}
	}
	return strings.Join(lines, "\n"), cfg
}
