// Package llm provides a chat completion client for the content classifier.
//
// The analysis stage sends the article text with a taxonomy-aware system prompt
// and receives free text back. The client never assumes the reply is clean
// JSON; structure is recovered by the extract package.
//
// # Configuration
//
// Requires api_key and model, optionally base_url, referer, title and
// timeout_seconds. base_url may point at any OpenAI-compatible endpoint.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send system/user prompts, receive the model's text.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, network timeouts and empty
// completions with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default). Retry-After is honoured. Context cancellation aborts retries
// immediately.
//
// # Errors
//
// Missing credentials surface as services.ErrConfiguration, deadlines as
// services.ErrExternalServiceTimeout and every other failure as
// services.ErrExternalService.
package llm
