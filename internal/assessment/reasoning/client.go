package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/metrics"
	"github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/circuit"
)

const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.3-70b-versatile"
	DefaultTimeout     = 60 * time.Second
	DefaultMaxRetries  = 3
	DefaultMaxTokens   = 4096
	defaultInitialWait = 500 * time.Millisecond
	maxErrorBody       = 512
)

// Client calls an OpenAI-compatible chat completions endpoint. It enforces a
// per-attempt timeout, retries 429/5xx/transport failures with exponential
// backoff, and fails fast while its circuit breaker is open.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	maxRetries  int
	initialWait time.Duration

	http    *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = t }
}

func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets the total attempt budget per call.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff sets the wait before the first retry; later waits double.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.initialWait = d
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient builds a client for the given API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("reasoning api key is required")
	}
	c := &Client{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		model:       DefaultModel,
		maxTokens:   DefaultMaxTokens,
		timeout:     DefaultTimeout,
		maxRetries:  DefaultMaxRetries,
		initialWait: defaultInitialWait,
		http:        &http.Client{},
		breaker:     circuit.New("reasoning"),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends prompt (with an optional system message) and returns the
// first choice's content.
func (c *Client) Complete(ctx context.Context, prompt, system string) (string, error) {
	start := time.Now()
	out, err := c.complete(ctx, prompt, system)

	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
	}
	c.metrics.ObserveReasoningCall(outcome, time.Since(start))
	return out, err
}

func (c *Client) complete(ctx context.Context, prompt, system string) (string, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		return "", &Error{Kind: KindCircuitOpen, Message: "circuit " + c.breaker.Name() + " open"}
	}

	messages := make([]chatMessage, 0, 2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", &Error{Kind: KindMalformed, Message: "marshal request", Underlying: err}
	}

	var lastErr *Error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			wait := c.initialWait << (attempt - 2)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", c.fail(&Error{Kind: KindTimeout, Attempts: attempt - 1, Underlying: ctx.Err()})
			}
		}

		text, callErr, retryable := c.attempt(ctx, body)
		if callErr == nil {
			if c.breaker != nil {
				c.breaker.RecordSuccess()
			}
			return text, nil
		}
		callErr.Attempts = attempt
		lastErr = callErr

		c.logger.DebugContext(ctx, "reasoning attempt failed",
			"attempt", attempt,
			"kind", callErr.Kind,
			"error", callErr,
		)
		if !retryable || ctx.Err() != nil {
			break
		}
	}
	return "", c.fail(lastErr)
}

func (c *Client) fail(err *Error) error {
	if c.breaker != nil {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.Warn("reasoning circuit opened", "breaker", c.breaker.Name())
		}
	}
	return err
}

// attempt performs one HTTP round trip bounded by the client timeout.
func (c *Client) attempt(ctx context.Context, body []byte) (string, *Error, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindMalformed, Message: "build request", Underlying: err}, false
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &Error{Kind: KindTimeout, Underlying: err}, true
		}
		return "", &Error{Kind: KindTransport, Underlying: err}, true
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: KindTransport, Message: "read response", Underlying: err}, true
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg += ": " + apiErr.Error.Message
		} else if len(respBody) > 0 {
			msg += ": " + string(respBody[:min(len(respBody), maxErrorBody)])
		}
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", &Error{Kind: KindHTTPStatus, Message: msg}, retryable
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &Error{Kind: KindMalformed, Message: "decode response", Underlying: err}, false
	}
	if len(parsed.Choices) == 0 {
		return "", &Error{Kind: KindMalformed, Message: "response has no choices"}, false
	}
	return parsed.Choices[0].Message.Content, nil, false
}
