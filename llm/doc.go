// Package llm provides the model transport used by the agent core.
//
// The agent's wire protocol is plain text: the model receives the full
// conversation as role-tagged messages and must answer with a Decision
// Document (a JSON object) in its raw text response. Because of that, this
// package deliberately exposes a much narrower surface than a full
// multi-modal SDK: a Client completes a []Message into text.
//
// The default Client implementation wraps gollm, so any provider gollm
// supports (OpenAI, Anthropic, Ollama, ...) works out of the box. Errors are
// translated into a typed taxonomy so callers can distinguish authentication
// failures from rate limits from transient server errors, and the Retry
// helper implements exponential backoff with jitter for callers that choose
// to retry transient transport failures. The agent core itself never retries
// transport errors; it only retries malformed Decision Documents.
package llm
