package openaiLLM

import (
	"errors"
	"testing"

	"github.com/nkumar/docchat/internal/config"
)

func TestNewClientMissingKey(t *testing.T) {
	_, err := NewClient(config.OpenAIModelName, "", false)
	if !errors.Is(err, config.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}
