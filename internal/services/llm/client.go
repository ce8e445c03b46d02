package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"lessonreel/internal/services"
)

const defaultHTTPTimeout = 120 * time.Second

// Config captures the runtime settings required to talk to the OpenAI API.
type Config struct {
	APIKey             string
	BaseURL            string
	ChatModel          string
	TTSModel           string
	TTSVoice           string
	MaxTTSChars        int
	ImageModel         string
	ImageSize          string
	ImageQuality       string
	TranscriptionModel string
	Timeout            time.Duration
}

// Client wraps the OpenAI chat, image, speech and transcription endpoints.
// Every call goes through the client's RetryPolicy; the SDK's own retries are
// disabled so the attempt budget is the one the operator configured.
type Client struct {
	cfg   Config
	api   openai.Client
	retry services.RetryPolicy

	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy services.RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.ChatModel = strings.TrimSpace(cfg.ChatModel)
	timeout := defaultHTTPTimeout
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	client := &Client{
		cfg:        cfg,
		retry:      services.DefaultRetryPolicy(),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(client.httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}
	client.api = openai.NewClient(requestOpts...)
	return client
}

// ChatModel returns the default chat model.
func (c *Client) ChatModel() string {
	return c.cfg.ChatModel
}

func (c *Client) requireKey(op string) error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, "", op, "openai api key required", nil)
	}
	return nil
}

// do runs fn under the retry policy and maps the final failure onto the
// service error taxonomy.
func (c *Client) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := c.retry.Do(ctx, op, classify, func(ctx context.Context, _ int) error {
		return fn(ctx)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, services.ErrRetriesExhausted) || errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, "", op, "openai rejected credentials", err)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return services.Wrap(services.ErrValidation, "", op, "openai rejected request", err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "", op, "request timed out", err)
	}
	return services.Wrap(services.ErrExternalTool, "", op, "openai request failed", err)
}

// classify retries rate limits, server errors, empty completions and network
// timeouts. Retry-After is honoured when the API sends it.
func classify(err error) (time.Duration, bool) {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if !services.RetryableStatus(apiErr.StatusCode) {
			return 0, false
		}
		var retryAfter time.Duration
		if apiErr.Response != nil {
			retryAfter, _ = services.ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		return retryAfter, true
	}
	var empty *emptyContentError
	if errors.As(err, &empty) {
		return 0, true
	}
	return services.ClassifyDefault(err)
}

type emptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q, refusal=%q)", e.Op, e.FinishReason, e.Refusal)
}
