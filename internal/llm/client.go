// Package llm defines the boundary contract with the language-model API used
// by the prose stages. The pipeline only cares about the slot the text fills
// and the usage it cost; prompt and completion content are opaque here.
package llm

import "context"

// Request is a single completion request.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Response carries the completion plus the usage the orchestrator adds to the
// audit's cost totals.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	Cost         float64
}

// Client is the injected language-model client. A nil client is a valid
// wiring: prose stages then produce empty, well-formed narratives.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
