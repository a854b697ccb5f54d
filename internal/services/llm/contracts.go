package llm

import (
	"context"
)

// Servicer defines the chat completion operations used by the modules
type Servicer interface {
	// Complete sends a chat completion request
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (*Response, error)

	// GetContent returns just the text of the first choice
	GetContent(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)
}

// Ensure Service implements Servicer
var _ Servicer = (*Service)(nil)
