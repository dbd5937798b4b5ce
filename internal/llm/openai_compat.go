package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"iris/internal/apperr"
)

// Provider default endpoints and models, matching the hosted deployments
// this service is pointed at.
const (
	cerebrasBaseURL      = "https://api.cerebras.ai/v1"
	cerebrasDefaultModel = "llama-4-maverick-17b-128e-instruct"

	groqBaseURL      = "https://api.groq.com/openai/v1"
	groqDefaultModel = "meta-llama/llama-4-maverick-17b-128e-instruct"

	defaultTemperature = 0.7
	defaultMaxTokens   = 1024
)

// Client talks to an OpenAI-compatible chat completions endpoint and serves
// both vision and text invocations.
type Client struct {
	baseClient
	temperature float64
	maxTokens   int
}

var _ VisionClient = (*Client)(nil)
var _ TextClient = (*Client)(nil)

// NewCerebrasClient creates a client for the Cerebras inference API.
func NewCerebrasClient(config Config) *Client {
	return newClient(config, baseClientOpts{
		defaultBaseURL: cerebrasBaseURL,
		defaultModel:   cerebrasDefaultModel,
		logComponent:   "CerebrasClient",
	})
}

// NewGroqClient creates a client for the Groq inference API.
func NewGroqClient(config Config) *Client {
	return newClient(config, baseClientOpts{
		defaultBaseURL: groqBaseURL,
		defaultModel:   groqDefaultModel,
		logComponent:   "GroqClient",
	})
}

// NewClient creates a client for an arbitrary OpenAI-compatible endpoint.
// BaseURL and Model must be set in the config.
func NewClient(config Config) *Client {
	return newClient(config, baseClientOpts{
		logComponent: "LLMClient",
	})
}

func newClient(config Config, opts baseClientOpts) *Client {
	if opts.defaultTimeout == 0 {
		opts.defaultTimeout = 60 * time.Second
	}
	temperature := config.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		baseClient:  newBaseClient(config, opts),
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// InvokeVision embeds the image as a base64 data URL next to the instruction
// text in a single user message, the transport every OpenAI-compatible
// vision deployment accepts.
func (c *Client) InvokeVision(ctx context.Context, image []byte, mimeType string, instructions string) (string, error) {
	if !c.Ready() {
		return "", &apperr.PermanentError{Err: errors.New("API key not configured")}
	}
	if len(image) == 0 {
		return "", &apperr.PermanentError{Err: errors.New("empty image")}
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	messages := []map[string]any{
		{
			"role": "user",
			"content": []map[string]any{
				{
					"type": "text",
					"text": instructions,
				},
				{
					"type": "image_url",
					"image_url": map[string]any{
						"url": dataURL,
					},
				},
			},
		},
	}

	return c.chatCompletionWithRetry(ctx, messages, c.temperature, c.maxTokens)
}

// InvokeText sends a plain system+user prompt pair.
func (c *Client) InvokeText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.Ready() {
		return "", &apperr.PermanentError{Err: errors.New("API key not configured")}
	}

	messages := make([]map[string]any, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, map[string]any{
			"role":    "system",
			"content": systemPrompt,
		})
	}
	messages = append(messages, map[string]any{
		"role":    "user",
		"content": userPrompt,
	})

	return c.chatCompletionWithRetry(ctx, messages, c.temperature, c.maxTokens)
}
