package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
)

// ChatRequest describes a single system + user completion.
type ChatRequest struct {
	Model       string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

func (c *Client) chatParams(req ChatRequest) (openai.ChatCompletionNewParams, error) {
	system := strings.TrimSpace(req.System)
	user := strings.TrimSpace(req.User)
	if user == "" {
		return openai.ChatCompletionNewParams{}, errors.New("user prompt required")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.cfg.ChatModel
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(user))
	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       openai.ChatModel(model),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	return params, nil
}

// Complete issues a plain-text chat completion and returns the trimmed
// content of the first choice.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	const op = "chat.complete"
	if err := c.requireKey(op); err != nil {
		return "", err
	}
	params, err := c.chatParams(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return c.complete(ctx, op, params)
}

func (c *Client) complete(ctx context.Context, op string, params openai.ChatCompletionNewParams) (string, error) {
	var content string
	err := c.do(ctx, op, func(ctx context.Context) error {
		completion, err := c.api.Chat.Completions.New(ctx, params)
		if err != nil {
			return err
		}
		if len(completion.Choices) == 0 {
			return &emptyContentError{Op: op}
		}
		choice := completion.Choices[0]
		content = strings.TrimSpace(choice.Message.Content)
		if content == "" {
			return &emptyContentError{
				Op:           op,
				FinishReason: string(choice.FinishReason),
				Refusal:      choice.Message.Refusal,
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// CompleteStructured requests a JSON-schema constrained completion and decodes
// the result into T. The schema is derived from T's json tags.
func CompleteStructured[T any](ctx context.Context, c *Client, req ChatRequest, name, description string) (T, error) {
	const op = "chat.structured"
	var result T
	if err := c.requireKey(op); err != nil {
		return result, err
	}
	params, err := c.chatParams(req)
	if err != nil {
		return result, fmt.Errorf("%s: %w", op, err)
	}
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        name,
				Description: openai.String(description),
				Schema:      GenerateSchema[T](),
				Strict:      openai.Bool(true),
			},
		},
	}
	content, err := c.complete(ctx, op, params)
	if err != nil {
		return result, err
	}
	if err := DecodeLLMJSON(content, &result); err != nil {
		return result, fmt.Errorf("%s: parse payload: %w", op, err)
	}
	return result, nil
}

// HealthCheck issues a fast ping to verify the API key and chat model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	type pong struct {
		OK bool `json:"ok"`
	}
	parsed, err := CompleteStructured[pong](ctx, c, ChatRequest{
		System: "You must respond with JSON only.",
		User:   `Respond with {"ok":true}`,
	}, "health", "Connectivity probe")
	if err != nil {
		return err
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}
