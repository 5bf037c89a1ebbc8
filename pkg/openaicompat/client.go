package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
	"github.com/dskvich/banana-draw-bot/pkg/transport"
)

const chatCompletionsPath = "/chat/completions"

type client struct {
	hc *http.Client
}

func NewClient(hc *http.Client) *client {
	return &client{hc: hc}
}

// Generate sends a chat completion with the prompt and images. OpenAI-style
// gateways disagree on how images come back, so a successful response yields
// no images and no error; only failures are interpreted.
func (c *client) Generate(ctx context.Context, provider domain.Provider, key string, req domain.GenerateRequest) ([]domain.Image, error) {
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = baseURL(provider.APIURL)
	cfg.HTTPClient = c.hc

	_, err := openai.NewClientWithConfig(cfg).CreateChatCompletion(ctx, buildRequest(provider.Model, req))
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("image generation failed: %s", apiErr.Message)
		}
		if transport.IsTimeout(err) {
			return nil, fmt.Errorf("image generation failed: response timed out: %w", err)
		}
		return nil, fmt.Errorf("image generation failed: %w", err)
	}

	slog.WarnContext(ctx, "Image extraction is not implemented for OpenAI-style responses",
		"model", provider.Model)
	return nil, nil
}

func buildRequest(model string, req domain.GenerateRequest) openai.ChatCompletionRequest {
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: req.Prompt}}
	for _, img := range req.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: "data:" + img.MimeType + ";base64," + img.Data},
		})
	}

	return openai.ChatCompletionRequest{
		Model:  model,
		Stream: false,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	}
}

// baseURL accepts either a base URL or a full chat completions endpoint.
func baseURL(apiURL string) string {
	return strings.TrimSuffix(strings.TrimRight(apiURL, "/"), chatCompletionsPath)
}
