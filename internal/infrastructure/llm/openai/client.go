// Package openai adapts the official OpenAI Go SDK to the language model and embedding ports.
package openai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/tshaffer/memorappy/internal/infrastructure/resilience"
)

const (
	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// ErrNoChoices is returned when a chat completion comes back without any choice.
var ErrNoChoices = errors.New("openai: no choices in response")

// Client calls the chat completions and embeddings APIs.
type Client struct {
	sdk        openaisdk.Client
	chatModel  string
	embedModel string
	executor   *resilience.Executor
}

// ClientOption configures the Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	chatModel  string
	embedModel string
	baseURL    string
	executor   *resilience.Executor
}

func WithChatModel(model string) ClientOption {
	return func(c *clientConfig) { c.chatModel = model }
}

func WithEmbeddingModel(model string) ClientOption {
	return func(c *clientConfig) { c.embedModel = model }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) { c.baseURL = url }
}

func WithResilienceExecutor(executor *resilience.Executor) ClientOption {
	return func(c *clientConfig) { c.executor = executor }
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	cfg := clientConfig{chatModel: DefaultChatModel, embedModel: DefaultEmbeddingModel}
	for _, opt := range opts {
		opt(&cfg)
	}

	// Retries are owned by the resilience executor.
	sdkOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if strings.TrimSpace(cfg.baseURL) != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Client{
		sdk:        openaisdk.NewClient(sdkOpts...),
		chatModel:  cfg.chatModel,
		embedModel: cfg.embedModel,
		executor:   cfg.executor,
	}
}

func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var content string
	err := c.execute(ctx, "openai.chat", func(callCtx context.Context) error {
		resp, err := c.sdk.Chat.Completions.New(callCtx, openaisdk.ChatCompletionNewParams{
			Model: openaisdk.ChatModel(c.chatModel),
			Messages: []openaisdk.ChatCompletionMessageParamUnion{
				openaisdk.SystemMessage(systemPrompt),
				openaisdk.UserMessage(userPrompt),
			},
			Temperature: param.NewOpt(0.0),
		})
		if err != nil {
			return fmt.Errorf("openai chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return ErrNoChoices
		}
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var out [][]float32
	err := c.execute(ctx, "openai.embed", func(callCtx context.Context) error {
		resp, err := c.sdk.Embeddings.New(callCtx, openaisdk.EmbeddingNewParams{
			Input: openaisdk.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: openaisdk.EmbeddingModel(c.embedModel),
		})
		if err != nil {
			return fmt.Errorf("openai embedding: %w", err)
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("openai embedding: expected %d vectors, got %d", len(texts), len(resp.Data))
		}

		data := resp.Data
		sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
		out = make([][]float32, len(data))
		for i, item := range data {
			vec := make([]float32, len(item.Embedding))
			for k, v := range item.Embedding {
				vec[k] = float32(v)
			}
			out[i] = vec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ModelName() string {
	return "openai/" + c.embedModel
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	return resilience.Run(ctx, c.executor, operation, fn, classifyOpenAIError)
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		return resilience.ClassifyHTTPStatus(apiErr.StatusCode)
	}
	return resilience.ClassifyNetwork(err)
}
