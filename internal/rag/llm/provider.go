package llm

import (
	"context"
	"errors"

	"github.com/nkumar/docchat/internal/domain/chatModel"
)

// ErrGeneration marks a failed model call. The chat turn fails but the
// session stays usable for a retry.
var ErrGeneration = errors.New("llm generation failed")

// Provider is the single configured chat model. Stream delivers fragments in
// generation order through emit; the sequence is finite and not restartable.
// A provider constructed without streaming support reports Streaming() false
// and callers fall back to Invoke.
type Provider interface {
	Invoke(ctx context.Context, messages []chatModel.Entry) (string, error)
	Stream(ctx context.Context, messages []chatModel.Entry, emit func(fragment string) error) error
	Streaming() bool
}
