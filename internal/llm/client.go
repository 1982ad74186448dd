package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64

	client openai.Client
}

// NewClient creates a new LLM client. maxTokens <= 0 leaves the completion length to the server.
func NewClient(baseURL, apiKey, model string, maxTokens int, opts Options) *Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(apiBaseURL(baseURL)),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if opts.RequestTimeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.RequestTimeout))
	}

	return &Client{
		BaseURL:     baseURL,
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: DefaultTemperature,
		client:      openai.NewClient(reqOpts...),
	}
}

// Generate sends prompt as a single user message and returns the first choice's content.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.Temperature),
	}
	if c.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return completion.Choices[0].Message.Content, nil
}

// ModelName returns the generation model name.
func (c *Client) ModelName() string {
	return c.Model
}
