// Package llm provides a chat client for OpenAI-compatible completion
// endpoints that honour JSON-schema response formats.
//
// romscribe points it at a local llama-server so every metadata response is
// decoded under a grammar derived from the game schema.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteSchema: send system/user prompts plus a schema, receive raw JSON.
// DecodeLLMJSON: tolerant decoder that strips code fences and prose.
//
// # Failure Behaviour
//
// Each call is issued exactly once. Non-2xx responses surface as
// *HTTPStatusError and content-free responses as *EmptyContentError.
// Context cancellation aborts the in-flight request.
package llm
