package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
	"github.com/dskvich/banana-draw-bot/pkg/transport"
)

const logBodyLimit = 512

type client struct {
	hc *http.Client
}

func NewClient(hc *http.Client) *client {
	return &client{hc: hc}
}

// Generate calls {api_url}/{model}:generateContent with one API key.
func (c *client) Generate(ctx context.Context, provider domain.Provider, key string, req domain.GenerateRequest) ([]domain.Image, error) {
	body, err := json.Marshal(buildRequest(provider.Model, req))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(provider.APIURL, "/") + "/" + provider.Model + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", key)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		if transport.IsTimeout(err) {
			return nil, fmt.Errorf("image generation failed: response timed out: %w", err)
		}
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	images, err := parseResponse(resp.StatusCode, respBody)
	if err != nil {
		slog.WarnContext(ctx, "Gemini returned no images",
			"status", resp.StatusCode,
			"body", lo.Substring(string(respBody), 0, logBodyLimit),
		)
		return nil, err
	}
	return images, nil
}

func parseResponse(status int, body []byte) ([]domain.Image, error) {
	if status != http.StatusOK {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = "unknown reason"
		}
		return nil, &APIError{Status: status, Message: msg}
	}

	var resp generateContentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding response data: %w", err)
	}

	var images []domain.Image
	for _, cand := range resp.Candidates {
		if cand.FinishReason != finishReasonStop {
			return nil, &FinishReasonError{Reason: cand.FinishReason}
		}
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				images = append(images, domain.Image{MimeType: p.InlineData.MimeType, Data: p.InlineData.Data})
			}
		}
	}

	if len(images) > 0 {
		return images, nil
	}

	if feedback := gjson.GetBytes(body, "promptFeedback"); feedback.IsObject() && len(feedback.Map()) > 0 {
		reason := feedback.Get("blockReason").String()
		if reason == "" {
			reason = "unknown"
		}
		return nil, &BlockedError{Reason: reason}
	}
	return nil, fmt.Errorf("image generation failed: %w", domain.ErrNoImageData)
}
