package coach

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// ErrUnavailable is returned by the backend used when no API key is set.
var ErrUnavailable = errors.New("coach backend not configured")

// Backend produces advice text and a base64-encoded PNG portrait.
type Backend interface {
	Advise(ctx context.Context, prompt string) (string, error)
	Portrait(ctx context.Context, prompt string) (string, error)
}

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // empty for api.openai.com
	Model      string
	ImageModel string
}

// NewBackend returns an OpenAI backend, or one that always fails with
// ErrUnavailable when cfg has no API key.
func NewBackend(cfg OpenAIConfig) Backend {
	if cfg.APIKey == "" {
		return unavailable{}
	}
	return NewOpenAIBackend(cfg)
}

type unavailable struct{}

func (unavailable) Advise(context.Context, string) (string, error)   { return "", ErrUnavailable }
func (unavailable) Portrait(context.Context, string) (string, error) { return "", ErrUnavailable }

type OpenAIBackend struct {
	client     *openai.Client
	model      string
	imageModel string
}

func NewOpenAIBackend(cfg OpenAIConfig) *OpenAIBackend {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = openai.CreateImageModelDallE3
	}
	return &OpenAIBackend{
		client:     openai.NewClientWithConfig(oc),
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
	}
}

func (o *OpenAIBackend) Advise(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIBackend) Portrait(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          o.imageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	for _, d := range resp.Data {
		if d.B64JSON != "" {
			return d.B64JSON, nil
		}
	}
	return "", nil
}
