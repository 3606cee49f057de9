// Package llm defines the minimal chat contract used for the cloud fallback
// when the local classifier microservice is unavailable.
package llm

import (
	"context"
	"time"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Result struct {
	Text     string
	Usage    Usage
	Duration time.Duration
}

type Request struct {
	Model string
	// ForceJSON asks the provider for a JSON-object response; providers
	// that reject the response_format knob downgrade to a plain request.
	ForceJSON bool
	Messages  []Message
}

type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}
