package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const defaultEmbeddingModel = "text-embedding-3-small"

// Client provides access to OpenAI-compatible LLM endpoints. A circuit
// breaker guards every call so a dead endpoint fails fast instead of
// stalling index builds and interactive questions behind timeouts.
type Client struct {
	client         *openai.Client
	endpoint       string
	model          string
	embeddingModel string
	breaker        *CircuitBreaker
	logger         *zap.Logger
}

// Config holds configuration for creating an LLM client.
type Config struct {
	BaseURL        string // Empty means the public OpenAI API
	APIKey         string // Optional for local endpoints
	Model          string // Chat model, e.g. "gpt-4o"
	EmbeddingModel string // Defaults to text-embedding-3-small
}

// NewClient creates a new OpenAI-compatible LLM client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	endpoint := clientConfig.BaseURL
	if cfg.BaseURL != "" {
		endpoint = strings.TrimSuffix(cfg.BaseURL, "/")
		clientConfig.BaseURL = endpoint
	}

	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}

	return &Client{
		client:         openai.NewClientWithConfig(clientConfig),
		endpoint:       endpoint,
		model:          cfg.Model,
		embeddingModel: embeddingModel,
		breaker:        NewCircuitBreaker(DefaultCircuitBreakerConfig()),
		logger:         logger.Named("llm"),
	}, nil
}

// GenerateResponse generates a chat completion response.
func (c *Client) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error) {
	if allowed, err := c.breaker.Allow(); !allowed {
		return "", err
	}

	messages := []openai.ChatCompletionMessage{}
	if systemMessage != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: systemMessage,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: prompt,
	})

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Float64("temperature", temperature))

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(temperature),
	})
	if err != nil {
		c.breaker.RecordFailure()
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", ClassifyError(err)
	}
	c.breaker.RecordSuccess()

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Choices[0].Message.Content, nil
}

// CreateEmbedding generates an embedding vector for the input text.
func (c *Client) CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error) {
	embeddings, err := c.CreateEmbeddings(ctx, []string{input}, model)
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("no embedding in response")
	}
	return embeddings[0], nil
}

// CreateEmbeddings generates embeddings for multiple inputs.
func (c *Client) CreateEmbeddings(ctx context.Context, inputs []string, model string) ([][]float32, error) {
	if model == "" {
		model = c.embeddingModel
	}

	if allowed, err := c.breaker.Allow(); !allowed {
		return nil, err
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(model),
		Input: inputs,
	})
	if err != nil {
		c.breaker.RecordFailure()
		return nil, ClassifyError(fmt.Errorf("create embeddings: %w", err))
	}
	c.breaker.RecordSuccess()

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Embedding
	}

	return embeddings, nil
}

// GetModel returns the configured model name.
func (c *Client) GetModel() string {
	return c.model
}

// GetEndpoint returns the configured endpoint.
func (c *Client) GetEndpoint() string {
	return c.endpoint
}
