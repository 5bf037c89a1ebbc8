package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/samber/lo"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
	"github.com/dskvich/banana-draw-bot/pkg/logger"
)

var (
	ErrUnsupportedAPIType = errors.New("unsupported API type")
	ErrNoKeys             = errors.New("no API keys configured")
)

// Caller performs one request against one provider with one key.
type Caller interface {
	Generate(ctx context.Context, provider domain.Provider, key string, req domain.GenerateRequest) ([]domain.Image, error)
}

// Result is either images from the first provider and key that produced
// some, or the last error seen.
type Result struct {
	Images   []domain.Image
	Provider string
	Model    string
	Err      error
}

type generator struct {
	callers map[string]Caller
}

// New takes a caller per api_type value.
func New(callers map[string]Caller) *generator {
	return &generator{callers: callers}
}

// Generate walks providers in order and, for each, a shuffled copy of its
// keys, trying every key up to retry times. It stops at the first call that
// returns images.
func (g *generator) Generate(ctx context.Context, providers []domain.Provider, retry int, req domain.GenerateRequest) Result {
	var (
		lastErr error
		called  bool
	)

	for _, p := range providers {
		caller, ok := g.callers[p.APIType]
		if !ok {
			slog.ErrorContext(ctx, "Unsupported API type", "provider", p.Name, "api_type", p.APIType)
			lastErr = fmt.Errorf("%w: %s", ErrUnsupportedAPIType, p.APIType)
			called = true
			continue
		}

		keys := lo.Shuffle(slices.Clone(p.Keys))
		for _, key := range keys {
			called = true
			images, err := g.callWithRetry(ctx, caller, p, key, retry, req)
			if len(images) > 0 {
				slog.InfoContext(ctx, "Images generated", "provider", p.Name, "model", p.Model, "count", len(images))
				return Result{Images: images, Provider: p.Name, Model: p.Model}
			}
			lastErr = err

			if ctx.Err() != nil {
				return Result{Err: ctx.Err()}
			}
			slog.WarnContext(ctx, "Image generation failed, switching key", "provider", p.Name, "key", maskKey(key))
		}
	}

	switch {
	case !called:
		return Result{Err: ErrNoKeys}
	case lastErr == nil:
		return Result{Err: domain.ErrNoImageData}
	}
	return Result{Err: lastErr}
}

func (g *generator) callWithRetry(ctx context.Context, caller Caller, p domain.Provider, key string, retry int, req domain.GenerateRequest) ([]domain.Image, error) {
	attempts := max(retry, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		images, err := caller.Generate(ctx, p, key, req)
		if err == nil {
			return images, nil
		}
		lastErr = err

		slog.WarnContext(ctx, "Image generation attempt failed",
			"provider", p.Name,
			"key", maskKey(key),
			"attempt", attempt,
			"max", attempts,
			logger.Err(err),
		)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
