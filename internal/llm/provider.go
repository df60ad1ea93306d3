// Package llm talks to the chat completion services that answer questions
// about the loaded structure.
package llm

import "context"

// Provider defines the interface for chat completion providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}
