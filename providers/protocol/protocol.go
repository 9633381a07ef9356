// Package protocol defines the contract between the workflow engine and the
// external LLM layer. The engine never builds prompts or talks to a model
// provider directly; it hands a serialized effective configuration to a
// Generator and interprets the text that comes back.
//
// Implementations live outside this module (or in tests as mocks). Errors
// returned by implementations must keep the provider's own wording, because
// the retry layer classifies transient failures by message content.
package protocol

import "context"

// Handle is an opaque reference to an in-flight conversation, returned by
// Generator.Run and accepted by Generator.Continue. The engine stores handles
// keyed by node ID and never inspects them.
type Handle any

// Generator is the consumed generation capability. One Run executes a single
// protocol turn; Continue feeds a user message into the conversation started
// by a prior Run.
type Generator interface {
	// Run executes the protocol against the model and returns the full
	// result, including the prompt echo for audit logging.
	Run(ctx context.Context, request RunRequest) (*RunResult, error)

	// Continue sends a follow-up user message on an existing conversation.
	// The returned result carries no prompt echo.
	Continue(ctx context.Context, handle Handle, userMessage string) (*RunResult, error)
}

// Extractor is the consumed extraction capability: it digests raw source
// documents into text relevant to a given scope, at a chosen analysis depth.
type Extractor interface {
	Extract(ctx context.Context, request ExtractRequest) (*ExtractResult, error)
}
