// Package llm provides an OpenRouter-compatible chat client used for
// transcript summarization.
//
// # Usage
//
// The summarization stage builds a Request (system prompt, user prompt,
// sampling settings) and calls Client.Complete to obtain the summary text.
// Client.HealthCheck issues a cheap JSON ping first; callers treat a failed
// probe as "LLM unavailable" and fall back to local summarization.
//
// # Configuration
//
// Requires api_key and model; base_url, referer, title, and timeout are
// optional. The client never reads configuration files itself; callers map
// their settings into Config.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx responses and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default),
// honouring Retry-After headers when present. Context cancellation aborts
// retries immediately. Empty completions are retried too, since some
// providers intermittently return blank choices.
package llm
