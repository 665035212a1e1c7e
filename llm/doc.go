// Package llm is the boundary to the LLM backend.
//
// It wraps gollm behind a small provider-agnostic Client interface: a
// request carries a system prompt, an ordered message history, and a model
// identifier, and the response carries the completion text plus usage
// metadata. Backend failures are translated into a typed error hierarchy
// with a retryability classification that drives the Retry helper's
// bounded exponential backoff.
//
// The agent loop depends only on the Client interface, so tests substitute
// a scripted fake instead of a live provider.
package llm
