package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
)

// GenerateImage renders prompt with the configured image model and returns
// the decoded PNG bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	const op = "images.generate"
	if err := c.requireKey(op); err != nil {
		return nil, err
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%s: prompt required", op)
	}
	params := openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(c.cfg.ImageModel),
		N:              openai.Int(1),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	}
	if c.cfg.ImageSize != "" {
		params.Size = openai.ImageGenerateParamsSize(c.cfg.ImageSize)
	}
	if c.cfg.ImageQuality != "" {
		params.Quality = openai.ImageGenerateParamsQuality(c.cfg.ImageQuality)
	}

	var image []byte
	err := c.do(ctx, op, func(ctx context.Context) error {
		resp, err := c.api.Images.Generate(ctx, params)
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
			return &emptyContentError{Op: op}
		}
		decoded, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
		if err != nil {
			return fmt.Errorf("decode image: %w", err)
		}
		image = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}
