package llm

import "context"

// Config holds connection settings for an OpenAI-compatible chat provider.
type Config struct {
	APIKey      string
	BaseURL     string            // Optional, provider constructor fills the default
	Model       string            // Optional, provider constructor fills the default
	Timeout     int               // Seconds, 0 means provider default
	MaxRetries  int               // Additional attempts after the first, 0 means default
	Headers     map[string]string // Extra headers sent on every request
	Temperature float64
	MaxTokens   int
}

// VisionClient sends one image plus a text instruction to a vision-capable
// model in a single request and returns the raw reply text. The reply should
// conform to whatever schema the instructions requested, but is not
// guaranteed to.
type VisionClient interface {
	InvokeVision(ctx context.Context, image []byte, mimeType string, instructions string) (string, error)
	Model() string
}

// TextClient sends a system prompt and a user prompt to a chat model and
// returns the reply text.
type TextClient interface {
	InvokeText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
}

// Ready reports whether a client has the credentials it needs to make calls.
// Implemented by the concrete clients and surfaced via the health endpoint.
type Ready interface {
	Ready() bool
}
