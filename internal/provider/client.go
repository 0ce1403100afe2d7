package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client is an HTTP text-generation backend. The same struct serves both
// wire formats; apiType selects between the Anthropic messages API and the
// OpenAI chat completions API.
type Client struct {
	role       Name
	apiKey     string
	baseURL    string
	model      string
	apiType    string // "anthropic" or "openai"
	httpClient *http.Client
	maxRetries int
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type ClientOption func(*Client)

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		transport := c.httpClient.Transport
		c.httpClient = &http.Client{Timeout: timeout, Transport: transport}
	}
}

func WithRetry(maxRetries int) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
	}
}

func WithRateLimit(requestsPerMinute, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
	}
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger.With("component", "provider_client", "backend", string(c.role))
	}
}

// NewAnthropicClient builds the high-capacity primary backend.
func NewAnthropicClient(apiKey, model string, opts ...ClientOption) *Client {
	c := newClient(Primary, apiKey, "https://api.anthropic.com/v1", model, "anthropic")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewOpenAIClient builds the general-purpose fallback backend.
func NewOpenAIClient(apiKey, model string, opts ...ClientOption) *Client {
	c := newClient(Fallback, apiKey, "https://api.openai.com/v1", model, "openai")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newClient(role Name, apiKey, baseURL, model, apiType string) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return &Client{
		role:    role,
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		apiType: apiType,
		httpClient: &http.Client{
			// Long-form generation over large books is slow; sub-minute
			// timeouts abort legitimate calls.
			Timeout:   5 * time.Minute,
			Transport: transport,
		},
		maxRetries: 2,
		limiter:    rate.NewLimiter(rate.Limit(0.5), 2),
		logger:     slog.Default().With("component", "provider_client", "backend", string(role)),
	}
}

func (c *Client) Name() Name {
	return c.role
}

// Configured reports whether the credential looks usable. Keys shorter
// than 20 characters are treated as placeholders.
func (c *Client) Configured() bool {
	return len(c.apiKey) >= 20
}

func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	requestID := fmt.Sprintf("api_%d", time.Now().UnixNano())
	startTime := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait failed: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			c.logger.Debug("retry backoff",
				"request_id", requestID,
				"attempt", attempt,
				"backoff_seconds", backoff.Seconds())
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		attemptStart := time.Now()
		c.logger.Debug("attempting generation request",
			"request_id", requestID,
			"attempt", attempt,
			"system_prompt_length", len(systemPrompt),
			"user_prompt_length", len(userPrompt),
			"max_tokens", maxTokens,
			"api_type", c.apiType,
			"model", c.model)

		var content string
		var err error
		if c.apiType == "openai" {
			content, err = c.doOpenAIRequest(ctx, requestID, systemPrompt, userPrompt, maxTokens)
		} else {
			content, err = c.doAnthropicRequest(ctx, requestID, systemPrompt, userPrompt, maxTokens)
		}

		if err == nil {
			c.logger.Info("generation request successful",
				"request_id", requestID,
				"attempt", attempt,
				"duration_ms", time.Since(attemptStart).Milliseconds(),
				"response_length", len(content),
				"total_duration_ms", time.Since(startTime).Milliseconds())
			return content, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.Warn("generation request failed, will retry",
			"request_id", requestID,
			"attempt", attempt,
			"duration_ms", time.Since(attemptStart).Milliseconds(),
			"error", err)
	}

	c.logger.Error("generation request failed after max retries",
		"request_id", requestID,
		"max_retries", c.maxRetries,
		"total_duration_ms", time.Since(startTime).Milliseconds(),
		"last_error", lastErr)
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doAnthropicRequest(ctx context.Context, requestID, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	requestBody := map[string]any{
		"model":  c.model,
		"system": systemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": userPrompt},
		},
		"max_tokens": maxTokens,
	}

	body, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	respBody, err := c.send(req, requestID, "/messages")
	if err != nil {
		return "", err
	}

	var response struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(response.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	c.logger.Info("anthropic request completed",
		"request_id", requestID,
		"input_tokens", response.Usage.InputTokens,
		"output_tokens", response.Usage.OutputTokens,
		"response_length", len(response.Content[0].Text))
	return response.Content[0].Text, nil
}

func (c *Client) doOpenAIRequest(ctx context.Context, requestID, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"max_tokens": maxTokens,
	}

	body, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	respBody, err := c.send(req, requestID, "/chat/completions")
	if err != nil {
		return "", err
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	c.logger.Info("openai request completed",
		"request_id", requestID,
		"prompt_tokens", response.Usage.PromptTokens,
		"completion_tokens", response.Usage.CompletionTokens,
		"response_length", len(response.Choices[0].Message.Content))
	return response.Choices[0].Message.Content, nil
}

func (c *Client) send(req *http.Request, requestID, endpoint string) ([]byte, error) {
	httpStart := time.Now()
	c.logger.Debug("sending HTTP request",
		"request_id", requestID,
		"endpoint", endpoint,
		"method", "POST")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("HTTP response received",
		"request_id", requestID,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(httpStart).Milliseconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("API error",
			"request_id", requestID,
			"status_code", resp.StatusCode,
			"response_body", string(respBody))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
