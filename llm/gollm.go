package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// Client completes a conversation into raw model text.
type Client interface {
	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string

	// Complete sends a blocking request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// GollmClient wraps a gollm.LLM instance and implements Client.
type GollmClient struct {
	provider string
	llm      gollm.LLM
	model    string
}

// GollmOption configures a GollmClient.
type GollmOption func(*gollmConfig)

type gollmConfig struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// WithAPIKey sets the API key for the client.
func WithAPIKey(key string) GollmOption {
	return func(c *gollmConfig) {
		c.apiKey = key
	}
}

// WithModel sets the default model for the client.
func WithModel(model string) GollmOption {
	return func(c *gollmConfig) {
		c.model = model
	}
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(n int) GollmOption {
	return func(c *gollmConfig) {
		c.maxTokens = n
	}
}

// WithTemperature sets the default temperature.
func WithTemperature(t float64) GollmOption {
	return func(c *gollmConfig) {
		c.temperature = t
	}
}

// WithGollmOptions adds extra gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmOption {
	return func(c *gollmConfig) {
		c.extraOpts = append(c.extraOpts, opts...)
	}
}

// NewGollmClient creates a new GollmClient for the given provider.
// If no API key is set via options, gollm reads it from the environment.
func NewGollmClient(provider string, opts ...GollmOption) (*GollmClient, error) {
	cfg := &gollmConfig{
		maxTokens:   4096,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		switch provider {
		case "anthropic":
			model = "claude-sonnet-4-5-20250514"
		default:
			model = "gpt-4o-mini"
		}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // retries are the caller's decision
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}

	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}

	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llmInstance, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gollm LLM for provider %s: %w", provider, err)
	}

	return &GollmClient{
		provider: provider,
		llm:      llmInstance,
		model:    model,
	}, nil
}

// NewGollmClientFromLLM wraps an existing gollm.LLM instance.
func NewGollmClientFromLLM(provider string, llmInstance gollm.LLM) *GollmClient {
	return &GollmClient{
		provider: provider,
		llm:      llmInstance,
	}
}

// Name returns the provider identifier.
func (c *GollmClient) Name() string {
	return c.provider
}

// Complete sends a blocking request and returns the full response.
func (c *GollmClient) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := c.translateRequest(req)

	if req.Model != "" {
		c.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		c.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		c.llm.SetOption("max_tokens", *req.MaxTokens)
	}

	text, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, c.translateError(err)
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	inTokens := estimateRequestTokens(req)
	return &Response{
		ID:       "resp_" + uuid.New().String()[:8],
		Model:    model,
		Provider: c.provider,
		Text:     text,
		Usage: Usage{
			// gollm does not expose detailed usage; estimate from text length.
			InputTokens:  inTokens,
			OutputTokens: len(text) / 4,
			TotalTokens:  inTokens + len(text)/4,
		},
	}, nil
}

// translateRequest converts a Request into a gollm Prompt. The Decision
// Document protocol carries everything as text, so the translation collapses
// the conversation into a system prompt plus role-prefixed context lines.
func (c *GollmClient) translateRequest(req Request) *gollm.Prompt {
	var systemPrompt string
	var parts []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			systemPrompt += msg.Content + "\n"
		case RoleUser:
			parts = append(parts, msg.Content)
		case RoleAssistant:
			if msg.Content != "" {
				parts = append(parts, "[Assistant]: "+msg.Content)
			}
		case RoleTool:
			parts = append(parts, "[Tool Result]: "+msg.Content)
		}
	}

	promptText := strings.Join(parts, "\n")
	if promptText == "" {
		promptText = "Hello"
	}

	promptOpts := []gollm.PromptOption{}
	if systemPrompt != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(systemPrompt), gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*req.MaxTokens))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// translateError converts a gollm error into the transport error hierarchy.
func (c *GollmClient) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()

	msgLower := strings.ToLower(msg)
	switch {
	case strings.Contains(msgLower, "401") || strings.Contains(msgLower, "unauthorized") || strings.Contains(msgLower, "invalid api key"):
		return &AuthenticationError{ProviderError: ProviderError{
			TransportError: TransportError{Message: msg, Cause: err}, Provider: c.provider, StatusCode: 401,
		}}
	case strings.Contains(msgLower, "403") || strings.Contains(msgLower, "forbidden"):
		return &AccessDeniedError{ProviderError: ProviderError{
			TransportError: TransportError{Message: msg, Cause: err}, Provider: c.provider, StatusCode: 403,
		}}
	case strings.Contains(msgLower, "429") || strings.Contains(msgLower, "rate limit"):
		return &RateLimitError{ProviderError: ProviderError{
			TransportError: TransportError{Message: msg, Cause: err}, Provider: c.provider, StatusCode: 429, Retryable: true,
		}}
	case strings.Contains(msgLower, "context length") || strings.Contains(msgLower, "too many tokens"):
		return &ContextLengthError{ProviderError: ProviderError{
			TransportError: TransportError{Message: msg, Cause: err}, Provider: c.provider, StatusCode: 413,
		}}
	case strings.Contains(msgLower, "500") || strings.Contains(msgLower, "internal server"):
		return &ServerError{ProviderError: ProviderError{
			TransportError: TransportError{Message: msg, Cause: err}, Provider: c.provider, StatusCode: 500, Retryable: true,
		}}
	case strings.Contains(msgLower, "timeout"):
		return &RequestTimeoutError{TransportError: TransportError{Message: msg, Cause: err}}
	case strings.Contains(msgLower, "connection refused") || strings.Contains(msgLower, "no such host"):
		return &NetworkError{TransportError: TransportError{Message: msg, Cause: err}}
	default:
		// Wrap as a generic provider error (retryable by default).
		return &ProviderError{
			TransportError: TransportError{Message: msg, Cause: err},
			Provider:       c.provider,
			Retryable:      true,
		}
	}
}

// estimateRequestTokens provides a rough token count from request messages.
func estimateRequestTokens(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	if total == 0 {
		total = 10
	}
	return total
}
