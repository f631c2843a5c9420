// Package llm builds the chat and embedding clients used to classify incidents.
package llm

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// Provider represents an LLM provider
type Provider string

const (
	ProviderBedrock   Provider = "bedrock"
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Defaults applied when Options leaves them unset.
const (
	DefaultMaxTokens   = 2000
	DefaultTemperature = 0.0
)

// Message is a single chat message.
type Message struct {
	Role    string // "system" or "user"
	Content string
}

// Response is the text returned by a chat model.
type Response struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
}

// ChatModel sends one synchronous chat request.
type ChatModel interface {
	Complete(ctx context.Context, messages []Message) (*Response, error)
	Provider() Provider
	Model() string
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Options binds a client to a provider, model and region.
type Options struct {
	Provider        Provider
	Model           string
	EmbeddingModel  string
	Region          string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	Temperature     float64
	MaxTokens       int
}

// NewChatModel creates the chat client for opts.Provider.
func NewChatModel(ctx context.Context, opts Options) (ChatModel, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("model id required")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}

	switch opts.Provider {
	case ProviderBedrock, "":
		awsCfg, err := loadAWSConfig(ctx, opts.Region)
		if err != nil {
			return nil, err
		}
		return NewBedrockChatModel(awsCfg, opts.Model, opts.Temperature, opts.MaxTokens), nil
	case ProviderAnthropic:
		if opts.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable required")
		}
		return NewAnthropicClient(opts.AnthropicAPIKey, opts.Model, opts.Temperature, opts.MaxTokens), nil
	case ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable required")
		}
		return NewOpenAIClient(opts.OpenAIAPIKey, opts.OpenAIBaseURL, opts.Model, opts.Temperature, opts.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", opts.Provider)
	}
}

// NewEmbedder creates the embeddings client for opts.Provider.
func NewEmbedder(ctx context.Context, opts Options) (Embedder, error) {
	if opts.EmbeddingModel == "" {
		return nil, fmt.Errorf("embedding model id required")
	}

	switch opts.Provider {
	case ProviderBedrock, "":
		awsCfg, err := loadAWSConfig(ctx, opts.Region)
		if err != nil {
			return nil, err
		}
		return NewTitanEmbedder(awsCfg, opts.EmbeddingModel), nil
	case ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable required")
		}
		return NewOpenAIEmbedder(opts.OpenAIAPIKey, opts.OpenAIBaseURL, opts.EmbeddingModel), nil
	default:
		return nil, fmt.Errorf("provider %q has no embeddings API", opts.Provider)
	}
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}
