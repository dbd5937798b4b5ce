package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"iris/internal/apperr"
	"iris/internal/logging"
)

// baseClient holds fields and helpers shared by HTTP-based chat clients.
type baseClient struct {
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
	headers    map[string]string
	maxRetries int
}

// baseClientOpts configures provider-specific defaults for newBaseClient.
type baseClientOpts struct {
	defaultBaseURL string
	defaultModel   string
	defaultTimeout time.Duration
	logComponent   string
}

// newBaseClient constructs the shared fields for an HTTP-based chat client.
func newBaseClient(config Config, opts baseClientOpts) baseClient {
	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		baseURL = opts.defaultBaseURL
	}
	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = opts.defaultModel
	}
	timeout := opts.defaultTimeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if config.Timeout > 0 {
		timeout = time.Duration(config.Timeout) * time.Second
	}
	return baseClient{
		model:      model,
		apiKey:     config.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(opts.logComponent),
		headers:    config.Headers,
		maxRetries: config.MaxRetries,
	}
}

// Model returns the model name used by this client.
func (c *baseClient) Model() string {
	return c.model
}

// Ready reports whether the client has credentials configured.
func (c *baseClient) Ready() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

// doPost sends an HTTP POST with the standard headers (Content-Type,
// Bearer authorization, custom headers). Caller closes resp.Body.
func (c *baseClient) doPost(ctx context.Context, endpoint string, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	return c.httpClient.Do(httpReq)
}

// chatCompletion posts a chat/completions payload and returns the first
// choice's message content. Errors are classified transient/permanent by
// HTTP status so the retry layer can decide.
func (c *baseClient) chatCompletion(ctx context.Context, messages []map[string]any, temperature float64, maxTokens int) (string, error) {
	reqBody := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": temperature,
		"max_tokens":  maxTokens,
		"stream":      false,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.doPost(ctx, c.baseURL+"/chat/completions", body)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		return "", apperr.FromHTTPStatus(resp.StatusCode, apiErr)
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	return apiResp.Choices[0].Message.Content, nil
}

// chatCompletionWithRetry wraps chatCompletion in exponential backoff.
func (c *baseClient) chatCompletionWithRetry(ctx context.Context, messages []map[string]any, temperature float64, maxTokens int) (string, error) {
	retryCfg := apperr.DefaultRetryConfig()
	if c.maxRetries > 0 {
		retryCfg.MaxAttempts = c.maxRetries
	}

	var reply string
	err := apperr.Retry(ctx, retryCfg, func(ctx context.Context) error {
		var callErr error
		reply, callErr = c.chatCompletion(ctx, messages, temperature, maxTokens)
		return callErr
	}, c.logger)
	if err != nil {
		return "", err
	}
	return reply, nil
}
