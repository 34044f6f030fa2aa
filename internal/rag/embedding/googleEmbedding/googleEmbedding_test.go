package googleEmbedding

import (
	"context"
	"errors"
	"testing"

	"github.com/nkumar/docchat/internal/config"
)

func TestNewClientMissingKey(t *testing.T) {
	_, err := NewClient(context.Background(), config.GoogleEmbeddingModel, "")
	if !errors.Is(err, config.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}
