package agent

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tailored-agentic-units/percept/core/config"
	"github.com/tailored-agentic-units/percept/vision"
)

// Client talks to the OpenAI-compatible completion endpoint. It serves two
// callers: the tool loop (chat completions with tool definitions) and the
// vision tools (frame + instruction completions).
type Client struct {
	api         openai.Client
	model       string
	visionModel string
}

// NewClient creates a Client from configuration. The same endpoint hosts
// both the reasoning model and the vision model.
func NewClient(completion config.CompletionConfig, agentModel string) *Client {
	opts := []option.RequestOption{}
	if completion.APIKey != "" {
		opts = append(opts, option.WithAPIKey(completion.APIKey))
	}
	if completion.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(completion.BaseURL))
	}

	return &Client{
		api:         openai.NewClient(opts...),
		model:       agentModel,
		visionModel: completion.Model,
	}
}

// Tools runs one chat completion carrying the tool definitions.
func (c *Client) Tools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, defs []openai.ChatCompletionToolParam) (*openai.ChatCompletion, error) {
	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
		Tools:    defs,
	})
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	return completion, nil
}

// Complete sends frames as inline data URIs with an instruction and
// returns the free-text completion. Implements tools.VisionCompleter.
func (c *Client) Complete(ctx context.Context, frames []vision.Frame, prompt string) (string, error) {
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(frames)+1)
	parts = append(parts, openai.TextContentPart(prompt))
	for _, f := range frames {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: f.DataURI(),
		}))
	}

	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.visionModel),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
	})
	if err != nil {
		return "", fmt.Errorf("vision completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return completion.Choices[0].Message.Content, nil
}
