// Package openai provides an arbor.Provider backed by the OpenAI chat
// completions API or any server that speaks the same protocol.
package openai

import (
	"context"
	"errors"
	"fmt"

	gopenai "github.com/sashabaranov/go-openai"
	"github.com/zoobzio/arbor"
	"github.com/zoobzio/zyn"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// ErrNoChoices is returned when the API answers without any completion.
var ErrNoChoices = errors.New("openai returned no choices")

// Provider calls the chat completions endpoint.
type Provider struct {
	client   *gopenai.Client
	model    string
	baseURL  string
	jsonMode bool
}

// Option configures a Provider.
type Option func(*Provider)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL points the client at a compatible server.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithJSONMode toggles the native JSON response format for structured calls.
// It is on by default; disable it for servers that reject response_format.
func WithJSONMode(enabled bool) Option {
	return func(p *Provider) {
		p.jsonMode = enabled
	}
}

// New creates a provider authenticated with apiKey.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		model:    DefaultModel,
		jsonMode: true,
	}
	for _, opt := range opts {
		opt(p)
	}

	config := gopenai.DefaultConfig(apiKey)
	if p.baseURL != "" {
		config.BaseURL = p.baseURL
	}
	p.client = gopenai.NewClientWithConfig(config)
	return p
}

// Name implements arbor.Provider.
func (p *Provider) Name() string {
	return "openai/" + p.model
}

// Model returns the configured model name.
func (p *Provider) Model() string {
	return p.model
}

// Call implements arbor.Provider.
func (p *Provider) Call(ctx context.Context, messages []zyn.Message, temperature float32) (*zyn.ProviderResponse, error) {
	return p.complete(ctx, p.request(messages, temperature))
}

// CallStructured implements arbor.StructuredProvider.
// With JSON mode disabled it behaves like Call.
func (p *Provider) CallStructured(ctx context.Context, messages []zyn.Message, temperature float32) (*zyn.ProviderResponse, error) {
	req := p.request(messages, temperature)
	if p.jsonMode {
		req.ResponseFormat = &gopenai.ChatCompletionResponseFormat{
			Type: gopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return p.complete(ctx, req)
}

func (p *Provider) request(messages []zyn.Message, temperature float32) gopenai.ChatCompletionRequest {
	converted := make([]gopenai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		converted[i] = gopenai.ChatCompletionMessage{
			Role:    roleFor(m.Role),
			Content: m.Content,
		}
	}
	return gopenai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    converted,
		Temperature: temperature,
	}
}

func (p *Provider) complete(ctx context.Context, req gopenai.ChatCompletionRequest) (*zyn.ProviderResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	return &zyn.ProviderResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: zyn.TokenUsage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
	}, nil
}

func roleFor(role string) string {
	switch role {
	case "system":
		return gopenai.ChatMessageRoleSystem
	case "assistant":
		return gopenai.ChatMessageRoleAssistant
	default:
		return gopenai.ChatMessageRoleUser
	}
}

var _ arbor.StructuredProvider = (*Provider)(nil)
