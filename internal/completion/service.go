// Package completion defines the boundary to the external text-generation
// capability. The orchestration core only depends on the Service interface;
// the concrete backend (a local CLI model runner or a scripted fake) is
// injected by the caller. Any error from a backend is treated uniformly:
// the core does not distinguish transient from permanent failures and never
// retries on its own.
package completion

import (
	"context"
	"errors"
)

// Message roles used in a completion request history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes a single completion call.
type Request struct {
	// System is the system instruction prepended to the conversation.
	System string

	// Messages is the ordered conversation history ending with the
	// message to respond to.
	Messages []Message

	// MaxTokens bounds the generated output size. Zero means the
	// backend default.
	MaxTokens int

	// Temperature controls sampling randomness. Zero means the backend
	// default.
	Temperature float64

	// Tools lists tool names the backend may use. The core passes these
	// through opaquely.
	Tools []string
}

// Service produces generated text for a request. Implementations must be
// safe for concurrent use: many agents issue calls at the same time with
// no ordering guarantee between them.
type Service interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrEmptyRequest is returned when a request carries no messages.
var ErrEmptyRequest = errors.New("completion request has no messages")
