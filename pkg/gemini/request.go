package gemini

import (
	"github.com/dskvich/banana-draw-bot/pkg/domain"
	"github.com/dskvich/banana-draw-bot/pkg/params"
)

// buildRequest assembles the generateContent body. Image size and the search
// tool are only sent for the pro image model.
func buildRequest(model string, req domain.GenerateRequest) *generateContentRequest {
	prompt := req.Prompt
	parts := []part{{Text: &prompt}}
	for _, img := range req.Images {
		parts = append(parts, part{InlineData: &inlineData{MimeType: img.MimeType, Data: img.Data}})
	}

	modalities := []string{modalityImage}
	if wantText(req) {
		modalities = []string{modalityText, modalityImage}
	}

	body := &generateContentRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseModalities: modalities,
		},
		SafetySettings: safetyOff,
	}

	var cfg imageConfig
	aspectRatio, ok := req.Params.String(params.AspectRatio)
	if !ok {
		aspectRatio = req.Defaults.AspectRatio
	}
	if aspectRatio != "" && aspectRatio != domain.AspectRatioDefault {
		cfg.AspectRatio = aspectRatio
	}

	if model == domain.ProImageModel {
		search, ok := req.Params.Bool(params.GoogleSearch)
		if !ok {
			search = req.Defaults.GoogleSearch
		}
		if search {
			body.Tools = []tool{{GoogleSearch: &struct{}{}}}
		}

		size, ok := req.Params.String(params.ImageSize)
		if !ok {
			size = req.Defaults.ImageSize
		}
		cfg.ImageSize = size
	}

	if cfg != (imageConfig{}) {
		body.GenerationConfig.ImageConfig = &cfg
	}
	return body
}

func wantText(req domain.GenerateRequest) bool {
	if onlyImage, ok := req.Params.Bool(params.OnlyImageResponse); ok {
		return !onlyImage
	}
	return req.Defaults.TextResponse
}
