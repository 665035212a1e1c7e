package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmClient implements Client over a gollm.LLM instance.
type GollmClient struct {
	provider string
	model    string
	llm      gollm.LLM
}

// GollmOption configures a GollmClient.
type GollmOption func(*gollmConfig)

type gollmConfig struct {
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(n int) GollmOption {
	return func(c *gollmConfig) { c.maxTokens = n }
}

// WithTemperature sets the default temperature.
func WithTemperature(t float64) GollmOption {
	return func(c *gollmConfig) { c.temperature = t }
}

// WithGollmOptions adds extra gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmOption {
	return func(c *gollmConfig) { c.extraOpts = append(c.extraOpts, opts...) }
}

// NewGollmClient creates a Client for the given provider and model. The API
// key must be non-empty; use APIKeyFromEnv to resolve it first.
func NewGollmClient(provider, model, apiKey string, opts ...GollmOption) (*GollmClient, error) {
	if apiKey == "" {
		return nil, &ConfigurationError{BackendError: BackendError{
			Message: fmt.Sprintf("empty API key for provider %q", provider),
		}}
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &gollmConfig{maxTokens: 8192, temperature: 0.0}
	for _, opt := range opts {
		opt(cfg)
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetAPIKey(apiKey),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // the Retry helper owns retry behavior
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	inner, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, &ConfigurationError{BackendError: BackendError{
			Message: fmt.Sprintf("failed to initialize %s backend", provider),
			Cause:   err,
		}}
	}

	return &GollmClient{provider: provider, model: model, llm: inner}, nil
}

// NewGollmClientFromLLM wraps an existing gollm.LLM instance.
func NewGollmClientFromLLM(provider string, inner gollm.LLM) *GollmClient {
	return &GollmClient{provider: provider, llm: inner}
}

// Provider returns the provider identifier.
func (c *GollmClient) Provider() string { return c.provider }

// Complete sends the request and returns the completion.
func (c *GollmClient) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := c.translateRequest(req)

	if req.Model != "" && req.Model != c.model {
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
	return &Response{
		ID:       "resp_" + uuid.New().String()[:8],
		Model:    model,
		Provider: c.provider,
		Text:     text,
		Usage:    estimateUsage(req, text),
	}, nil
}

// translateRequest flattens the message history into a gollm prompt. The
// system message becomes the gollm system prompt; assistant and tool turns
// are folded into the user prompt with role prefixes, which is how the
// text-protocol conversation is meant to be replayed.
func (c *GollmClient) translateRequest(req Request) *gollm.Prompt {
	var system string
	var parts []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system += msg.Text + "\n"
		case RoleUser:
			text := msg.Text
			for _, img := range msg.Images {
				// gollm prompts are text-only; note the attachment inline.
				text += fmt.Sprintf("\n[attached image: %s, %d bytes]", img.MediaType, len(img.Data))
			}
			parts = append(parts, text)
		case RoleAssistant:
			if msg.Text != "" {
				parts = append(parts, "[Assistant]: "+msg.Text)
			}
		}
	}

	promptText := strings.Join(parts, "\n\n")
	if promptText == "" {
		promptText = "Begin."
	}

	var promptOpts []gollm.PromptOption
	if system != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(system), gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*req.MaxTokens))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// translateError classifies a gollm error into the backend error hierarchy.
// gollm surfaces provider failures as opaque errors, so classification is
// by message content, the same way status codes would be mapped.
func (c *GollmClient) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)

	pe := ProviderError{
		BackendError: BackendError{Message: msg, Cause: err},
		Provider:     c.provider,
	}

	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		pe.StatusCode = 401
		return &AuthenticationError{ProviderError: pe}
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		pe.StatusCode = 429
		pe.Retryable = true
		return &RateLimitError{ProviderError: pe}
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
		pe.StatusCode = 413
		return &ContextLengthError{ProviderError: pe}
	case strings.Contains(lower, "400") || strings.Contains(lower, "invalid request"):
		pe.StatusCode = 400
		return &InvalidRequestError{ProviderError: pe}
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") || strings.Contains(lower, "503") || strings.Contains(lower, "internal server"):
		pe.StatusCode = 500
		pe.Retryable = true
		return &ServerError{ProviderError: pe}
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return &RequestTimeoutError{BackendError: BackendError{Message: msg, Cause: err}}
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		return &NetworkError{BackendError: BackendError{Message: msg, Cause: err}}
	default:
		pe.Retryable = true
		return &pe
	}
}

// estimateUsage approximates token usage from text length. gollm does not
// expose provider usage metadata on the blocking path.
func estimateUsage(req Request, completion string) Usage {
	input := 0
	for _, msg := range req.Messages {
		input += len(msg.Text) / 4
	}
	output := len(completion) / 4
	return Usage{
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  input + output,
	}
}
