package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/nkumar/docchat/internal/config"
	"github.com/nkumar/docchat/internal/customHttpClient"
	"github.com/nkumar/docchat/internal/rag/embedding"
	"github.com/nkumar/docchat/pkg/logger"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type client struct {
	api    openai.Client
	model  string
	logger *logger.Logger
}

// NewClient builds the OpenAI embedding client, selected when
// EMBEDDING_PROVIDER=openai.
func NewClient(modelName string, apikey string) (embedding.Embedder, error) {
	log := logger.NewLogger("openai_embedding")

	if apikey == "" {
		return nil, fmt.Errorf("%w: openai embedding API key is missing", config.ErrConfiguration)
	}

	api := openai.NewClient(
		option.WithAPIKey(apikey),
		option.WithHTTPClient(customHttpClient.Pooled()),
	)

	log.Info("OpenAI embedding client created", "model", modelName)
	return &client{api: api, model: modelName, logger: log}, nil
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.BatchEmbedding(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: chunks},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: openai.Int(int64(config.EmbeddingOutputDimensionality)),
	})
	if err != nil {
		log.Error("Error getting embeddings from OpenAI", "error", err)
		return nil, err
	}
	if len(resp.Data) != len(chunks) {
		return nil, errors.New("openai embedding: response size mismatch")
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}
