package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hashicorp/go-multierror"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
	"github.com/dskvich/banana-draw-bot/pkg/logger"
	"github.com/dskvich/banana-draw-bot/pkg/transport"
)

type fetcher struct {
	hc       *http.Client
	insecure *http.Client
}

func New(hc *http.Client) *fetcher {
	return &fetcher{
		hc:       hc,
		insecure: transport.Insecure(hc),
	}
}

// Fetch downloads every URL in order and normalizes the bytes. An image that
// fails to download is dropped; the caller decides whether what is left is
// enough.
func (f *fetcher) Fetch(ctx context.Context, urls []string) []domain.Image {
	var (
		images []domain.Image
		errs   error
	)
	for _, url := range urls {
		data, err := f.download(ctx, url)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}
		images = append(images, Normalize(data))
	}

	if errs != nil {
		slog.WarnContext(ctx, "Some images were not downloaded",
			"requested", len(urls), "downloaded", len(images), logger.Err(errs))
	}
	return images
}

func (f *fetcher) download(ctx context.Context, url string) ([]byte, error) {
	data, err := f.get(ctx, f.hc, url)
	if err != nil && transport.IsTLSError(err) {
		slog.WarnContext(ctx, "TLS verification failed, retrying without it", "url", url)
		data, err = f.get(ctx, f.insecure, url)
	}
	if err != nil && transport.IsTimeout(err) {
		return nil, fmt.Errorf("request timed out: %w", err)
	}
	return data, err
}

func (f *fetcher) get(ctx context.Context, hc *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return data, nil
}
