package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
	"github.com/dskvich/banana-draw-bot/pkg/params"
)

var defaults = domain.Defaults{
	MinImages:   1,
	MaxImages:   3,
	ImageSize:   "1K",
	AspectRatio: domain.AspectRatioDefault,
}

func marshal(t *testing.T, model string, req domain.GenerateRequest) gjson.Result {
	t.Helper()
	b, err := json.Marshal(buildRequest(model, req))
	require.NoError(t, err)
	return gjson.ParseBytes(b)
}

func TestBuildRequest(t *testing.T) {
	t.Run("flash model with images", func(t *testing.T) {
		body := marshal(t, domain.DefaultModel, domain.GenerateRequest{
			Prompt:   "a cat",
			Images:   []domain.Image{{MimeType: "image/png", Data: "AAA"}},
			Params:   params.Params{params.ImageSize: params.String("4K"), params.GoogleSearch: params.Bool(true)},
			Defaults: defaults,
		})

		assert.Equal(t, "a cat", body.Get("contents.0.parts.0.text").String())
		assert.Equal(t, "image/png", body.Get("contents.0.parts.1.inlineData.mimeType").String())
		assert.Equal(t, "AAA", body.Get("contents.0.parts.1.inlineData.data").String())
		assert.Equal(t, `["IMAGE"]`, body.Get("generationConfig.responseModalities").Raw)
		assert.False(t, body.Get("generationConfig.imageConfig").Exists())
		assert.False(t, body.Get("tools").Exists())

		assert.Len(t, body.Get("safetySettings").Array(), 4)
		for _, s := range body.Get("safetySettings").Array() {
			assert.Equal(t, "OFF", s.Get("threshold").String())
		}
	})

	t.Run("aspect ratio and text modality", func(t *testing.T) {
		body := marshal(t, domain.DefaultModel, domain.GenerateRequest{
			Prompt: "x",
			Params: params.Params{
				params.AspectRatio:       params.String("16:9"),
				params.OnlyImageResponse: params.Bool(false),
			},
			Defaults: defaults,
		})
		assert.Equal(t, "16:9", body.Get("generationConfig.imageConfig.aspectRatio").String())
		assert.Equal(t, `["TEXT","IMAGE"]`, body.Get("generationConfig.responseModalities").Raw)
	})

	t.Run("text response default", func(t *testing.T) {
		d := defaults
		d.TextResponse = true
		body := marshal(t, domain.DefaultModel, domain.GenerateRequest{Defaults: d})
		assert.Equal(t, `["TEXT","IMAGE"]`, body.Get("generationConfig.responseModalities").Raw)
		assert.True(t, body.Get("contents.0.parts.0.text").Exists())

		body = marshal(t, domain.DefaultModel, domain.GenerateRequest{
			Params:   params.Params{params.OnlyImageResponse: params.Bool(true)},
			Defaults: d,
		})
		assert.Equal(t, `["IMAGE"]`, body.Get("generationConfig.responseModalities").Raw)
	})

	t.Run("pro model gets size and search", func(t *testing.T) {
		d := defaults
		d.GoogleSearch = true
		body := marshal(t, domain.ProImageModel, domain.GenerateRequest{
			Params:   params.Params{params.AspectRatio: params.String("1:1")},
			Defaults: d,
		})
		assert.Equal(t, "1K", body.Get("generationConfig.imageConfig.imageSize").String())
		assert.Equal(t, "1:1", body.Get("generationConfig.imageConfig.aspectRatio").String())
		assert.True(t, body.Get("tools.0.google_search").Exists())

		body = marshal(t, domain.ProImageModel, domain.GenerateRequest{
			Params:   params.Params{params.GoogleSearch: params.Bool(false), params.ImageSize: params.String("2K")},
			Defaults: d,
		})
		assert.Equal(t, "2K", body.Get("generationConfig.imageConfig.imageSize").String())
		assert.False(t, body.Get("tools").Exists())
	})
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantImages []domain.Image
		check      func(t *testing.T, err error)
	}{
		{
			name:   "images from stop candidates",
			status: http.StatusOK,
			body: `{"candidates":[{"finishReason":"STOP","content":{"parts":[
				{"text":"here"},
				{"inlineData":{"mimeType":"image/png","data":"AAA"}},
				{"inlineData":{"mimeType":"image/jpeg","data":"BBB"}}]}}]}`,
			wantImages: []domain.Image{{MimeType: "image/png", Data: "AAA"}, {MimeType: "image/jpeg", Data: "BBB"}},
		},
		{
			name:   "non stop finish reason discards images",
			status: http.StatusOK,
			body: `{"candidates":[
				{"finishReason":"STOP","content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"AAA"}}]}},
				{"finishReason":"IMAGE_SAFETY","content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"BBB"}}]}}]}`,
			check: func(t *testing.T, err error) {
				var fr *FinishReasonError
				require.ErrorAs(t, err, &fr)
				assert.Equal(t, "IMAGE_SAFETY", fr.Reason)
				assert.Contains(t, err.Error(), "IMAGE_SAFETY")
			},
		},
		{
			name:   "blocked prompt",
			status: http.StatusOK,
			body:   `{"promptFeedback":{"blockReason":"PROHIBITED_CONTENT"}}`,
			check: func(t *testing.T, err error) {
				var blocked *BlockedError
				require.ErrorAs(t, err, &blocked)
				assert.Equal(t, "PROHIBITED_CONTENT", blocked.Reason)
			},
		},
		{
			name:   "feedback without reason",
			status: http.StatusOK,
			body:   `{"candidates":[],"promptFeedback":{"safetyRatings":[]}}`,
			check: func(t *testing.T, err error) {
				var blocked *BlockedError
				require.ErrorAs(t, err, &blocked)
				assert.Equal(t, "unknown", blocked.Reason)
			},
		},
		{
			name:   "no image data",
			status: http.StatusOK,
			body:   `{"candidates":[{"finishReason":"STOP","content":{"parts":[{"text":"only words"}]}}],"promptFeedback":{}}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrNoImageData)
			},
		},
		{
			name:   "provider error message",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":400,"message":"API key not valid"}}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusBadRequest, apiErr.Status)
				assert.Equal(t, "image generation failed: API key not valid", err.Error())
			},
		},
		{
			name:   "error without json",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "unknown reason", apiErr.Message)
			},
		},
		{
			name:   "broken json",
			status: http.StatusOK,
			body:   `{"candidates":`,
			check: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images, err := parseResponse(tt.status, []byte(tt.body))
			if tt.check != nil {
				tt.check(t, err)
				assert.Nil(t, images)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantImages, images)
		})
	}
}

func TestClientGenerate(t *testing.T) {
	var gotPath, gotKey string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"candidates":[{"finishReason":"STOP","content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"ZZZ"}}]}}]}`))
	}))
	defer srv.Close()

	provider := domain.Provider{APIType: domain.APITypeGemini, APIURL: srv.URL + "/v1beta/models/", Model: "m1"}
	images, err := NewClient(srv.Client()).Generate(context.Background(), provider, "k-1", domain.GenerateRequest{
		Prompt:   "hello",
		Defaults: defaults,
	})

	require.NoError(t, err)
	assert.Equal(t, []domain.Image{{MimeType: "image/png", Data: "ZZZ"}}, images)
	assert.Equal(t, "/v1beta/models/m1:generateContent", gotPath)
	assert.Equal(t, "k-1", gotKey)
	assert.Equal(t, "hello", gjson.GetBytes(gotBody, "contents.0.parts.0.text").String())
}

func TestClientGenerateTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	provider := domain.Provider{APIURL: srv.URL, Model: "m"}
	_, err := NewClient(http.DefaultClient).Generate(context.Background(), provider, "k", domain.GenerateRequest{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNoImageData))
}
