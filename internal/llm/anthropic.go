package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/aws"
)

// AnthropicClient implements ChatModel for Claude, either through the
// Anthropic API or through Amazon Bedrock.
type AnthropicClient struct {
	client      anthropic.Client
	provider    Provider
	model       string
	temperature float64
	maxTokens   int
}

// NewAnthropicClient creates a client for the Anthropic API.
func NewAnthropicClient(apiKey, model string, temperature float64, maxTokens int, opts ...option.RequestOption) *AnthropicClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &AnthropicClient{
		client:      anthropic.NewClient(opts...),
		provider:    ProviderAnthropic,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// NewBedrockChatModel creates a Claude client that talks to Bedrock in the
// region of awsCfg.
func NewBedrockChatModel(awsCfg aws.Config, model string, temperature float64, maxTokens int) *AnthropicClient {
	return &AnthropicClient{
		client:      anthropic.NewClient(bedrock.WithConfig(awsCfg), option.WithMaxRetries(0)),
		provider:    ProviderBedrock,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Complete sends the conversation and returns the concatenated text blocks.
func (c *AnthropicClient) Complete(ctx context.Context, messages []Message) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(c.maxTokens),
		Temperature: anthropic.Float(c.temperature),
	}

	for _, msg := range messages {
		if msg.Role == "system" {
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
			continue
		}
		params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.provider, err)
	}

	var content strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return nil, fmt.Errorf("no text content in %s response", c.provider)
	}

	return &Response{
		Content:      content.String(),
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
		Model:        string(message.Model),
	}, nil
}

// Provider returns the provider name
func (c *AnthropicClient) Provider() Provider {
	return c.provider
}

// Model returns the model name
func (c *AnthropicClient) Model() string {
	return c.model
}
