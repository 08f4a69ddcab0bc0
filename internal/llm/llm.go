// Package llm abstracts the chat-completion provider used for translation.
package llm

import "context"

// Request is one completion call: a system/user instruction pair with
// decoding bounds. Translation uses low temperature and a small output
// budget.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Provider returns the raw text of the first completion choice. Any
// transport or provider-side failure is an error; the caller decides how to
// classify it.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}
