package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tabletalk/tabletalk/internal/chat"
)

// UpstreamError reports a completion-call failure: network trouble, auth,
// rate limiting or a model-side error. StatusCode is zero when the request
// never got a response.
type UpstreamError struct {
	StatusCode int
	Body       string
	Cause      error
}

func (e *UpstreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("completion upstream failure: %v", e.Cause)
	}
	return fmt.Sprintf("completion upstream failure: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure is worth repeating: transport
// errors, rate limits and server-side errors. Other 4xx responses are
// deterministic and retrying them only reproduces the failure.
func (e *UpstreamError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// OpenAIClient talks to any OpenAI-compatible chat-completions endpoint.
// One synchronous call per turn; retries are bounded and apply only to
// retryable upstream failures.
type OpenAIClient struct {
	baseURL      string
	apiKey       string
	model        string
	temperature  float64
	maxRetries   int
	retryBackoff time.Duration
	client       *http.Client
}

func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &OpenAIClient{
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:       strings.TrimSpace(cfg.APIKey),
		model:        model,
		temperature:  cfg.Temperature,
		maxRetries:   maxRetries,
		retryBackoff: backoff,
		client:       &http.Client{Timeout: timeout},
	}, nil
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete sends the composed message list and returns the assistant reply.
func (c *OpenAIClient) Complete(ctx context.Context, messages []chat.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages are required")
	}

	wire := make([]wireMessage, 0, len(messages))
	for _, message := range messages {
		wire = append(wire, wireMessage{Role: string(message.Role), Content: message.Content})
	}
	body, err := json.Marshal(map[string]any{
		"model":       c.model,
		"messages":    wire,
		"temperature": c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", &UpstreamError{Cause: ctx.Err()}
			case <-time.After(c.retryBackoff * time.Duration(attempt)):
			}
		}

		reply, err := c.complete(ctx, body)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		var upstream *UpstreamError
		if !errors.As(err, &upstream) || !upstream.Retryable() {
			return "", err
		}
	}
	return "", lastErr
}

func (c *OpenAIClient) complete(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &UpstreamError{Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UpstreamError{Cause: fmt.Errorf("read chat response body: %w", err)}
	}
	if resp.StatusCode >= 400 {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: truncate(string(rawBody), 512)}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return "", &UpstreamError{Cause: fmt.Errorf("decode chat completion response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &UpstreamError{Cause: fmt.Errorf("empty chat completion choices")}
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
