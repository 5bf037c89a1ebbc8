package openaicompat

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
)

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.example.com/v1", baseURL("https://api.example.com/v1/chat/completions"))
	assert.Equal(t, "https://api.example.com/v1", baseURL("https://api.example.com/v1/"))
}

func TestGenerate(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"![img](x)"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	provider := domain.Provider{APIType: domain.APITypeOpenAI, APIURL: srv.URL + "/v1/chat/completions", Model: "img-model"}
	images, err := NewClient(srv.Client()).Generate(context.Background(), provider, "sk-1", domain.GenerateRequest{
		Prompt: "draw",
		Images: []domain.Image{{MimeType: "image/png", Data: "AAA"}},
	})

	require.NoError(t, err)
	assert.Nil(t, images)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-1", gotAuth)
	assert.Equal(t, "img-model", gjson.GetBytes(gotBody, "model").String())
	assert.Equal(t, "draw", gjson.GetBytes(gotBody, "messages.0.content.0.text").String())
	assert.Equal(t, "data:image/png;base64,AAA", gjson.GetBytes(gotBody, "messages.0.content.1.image_url.url").String())
}

func TestGenerateSurfacesProviderMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	provider := domain.Provider{APIURL: srv.URL, Model: "m"}
	_, err := NewClient(srv.Client()).Generate(context.Background(), provider, "bad", domain.GenerateRequest{})
	require.Error(t, err)
	assert.Equal(t, "image generation failed: invalid api key", err.Error())
}
