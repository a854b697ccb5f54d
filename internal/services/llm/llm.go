// Package llm talks to an OpenAI-compatible chat completion endpoint. By
// default that is Gemini's compatibility layer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gnzdotmx/chapterize/internal/config"
	"github.com/gnzdotmx/chapterize/internal/utils"
	openai "github.com/sashabaranov/go-openai"
)

// Message roles
const (
	RoleSystem = openai.ChatMessageRoleSystem
	RoleUser   = openai.ChatMessageRoleUser
)

// Message is one chat turn
type Message struct {
	Role    string
	Content string
}

// CompletionOptions contains the parameters of a completion request
type CompletionOptions struct {
	Model          string // empty uses the service default
	Temperature    float32
	MaxTokens      int
	RequestTimeout time.Duration
	JSONMode       bool // ask for a JSON object reply
}

// Response is the first choice of a completion plus token usage
type Response struct {
	Content          string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// Service is a go-openai backed Servicer
type Service struct {
	client       *openai.Client
	defaultModel string
}

// ErrMissingAPIKey is returned when no key is configured
var ErrMissingAPIKey = errors.New("LLM_API_KEY or GEMINI_API_KEY is not set")

// NewService creates a client for baseURL. An empty baseURL keeps the
// go-openai default.
func NewService(apiKey, baseURL, model string) (*Service, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Service{
		client:       openai.NewClientWithConfig(cfg),
		defaultModel: model,
	}, nil
}

// NewFromConfig creates a Service from environment settings
func NewFromConfig(cfg *config.Config) (*Service, error) {
	return NewService(cfg.LLMAPIKey, cfg.LLMBaseURL, string(cfg.Model))
}

// Complete sends a chat completion request
func (s *Service) Complete(ctx context.Context, messages []Message, opts CompletionOptions) (*Response, error) {
	if opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.RequestTimeout)
		defer cancel()
	}

	model := opts.Model
	if model == "" {
		model = s.defaultModel
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	utils.LogDebug("LLM request: model=%s messages=%d", model, len(messages))
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in chat completion response")
	}

	return &Response{
		Content:          resp.Choices[0].Message.Content,
		FinishReason:     string(resp.Choices[0].FinishReason),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// GetContent returns the text of the first choice
func (s *Service) GetContent(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	resp, err := s.Complete(ctx, messages, opts)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
