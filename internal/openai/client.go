package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the model used when a tenant does not name one.
	DefaultEmbeddingModel = string(openai.AdaEmbeddingV2)
	// DefaultChatModel is the model used for answer generation.
	DefaultChatModel = openai.GPT4oMini
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrEmptyResponse is returned when the provider returns no choices
	ErrEmptyResponse = errors.New("no completion choices returned")
)

// modelDimensions maps known embedding models to their vector size.
// Unknown models skip the dimension check.
var modelDimensions = map[string]int{
	string(openai.AdaEmbeddingV2):  1536,
	string(openai.SmallEmbedding3): 1536,
	string(openai.LargeEmbedding3): 3072,
}

// EmbeddingAPI defines the raw embedding call
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text, model string) ([]float32, error)
}

// CompletionAPI defines the raw chat-completion call
type CompletionAPI interface {
	CreateCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Client wraps the OpenAI API behind the embed and generate capabilities
// the knowledge engine depends on.
type Client struct {
	embeddings  EmbeddingAPI
	completions CompletionAPI
}

type OpenAIAdapter struct {
	client    *openai.Client
	chatModel string
}

func NewOpenAIAdapter(apiKey, chatModel string) *OpenAIAdapter {
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	return &OpenAIAdapter{
		client:    openai.NewClient(apiKey),
		chatModel: chatModel,
	}
}

// CreateEmbeddings calls the OpenAI API to create an embedding with the given model.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text, model string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// CreateCompletion calls the OpenAI chat API with a system and user prompt.
func (a *OpenAIAdapter) CreateCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey    string
	ChatModel string
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	adapter := NewOpenAIAdapter(cfg.APIKey, cfg.ChatModel)
	return &Client{
		embeddings:  adapter,
		completions: adapter,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// Embed generates an embedding for the given text using the named model.
func (c *Client) Embed(ctx context.Context, text, model string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}

	embedding, err := c.embeddings.CreateEmbeddings(ctx, text, model)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if expected, ok := modelDimensions[model]; ok && len(embedding) != expected {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d for model %s", len(embedding), expected, model)
	}

	return embedding, nil
}

// Generate produces grounded answer text from a system prompt, a context
// block of retrieved knowledge, and the user's query.
func (c *Client) Generate(ctx context.Context, systemPrompt, contextBlock, query string) (string, error) {
	if query == "" {
		return "", ErrEmptyText
	}

	userPrompt := query
	if contextBlock != "" {
		userPrompt = fmt.Sprintf("Knowledge context:\n%s\n\nQuestion: %s", contextBlock, query)
	}

	answer, err := c.completions.CreateCompletion(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}

	return answer, nil
}
