package fetcher

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
	"github.com/dskvich/banana-draw-bot/pkg/logger"
)

// Normalize encodes downloaded bytes for a provider request. Anything but GIF
// passes through with its own mime type; a GIF is reduced to its first frame
// and re-encoded as RGBA PNG. Bytes that fail to decode are sent as they are.
func Normalize(data []byte) domain.Image {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Image format not recognized, sending original bytes", logger.Err(err))
		return encode("image/gif", data)
	}

	if format != "gif" {
		return encode("image/"+format, data)
	}

	frame, err := firstFramePNG(data)
	if err != nil {
		slog.Warn("GIF conversion failed, sending original bytes", logger.Err(err))
		return encode("image/gif", data)
	}
	return encode("image/png", frame)
}

func firstFramePNG(data []byte) ([]byte, error) {
	frame, err := gif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding gif: %w", err)
	}

	rgba := image.NewRGBA(frame.Bounds())
	draw.Draw(rgba, rgba.Bounds(), frame, frame.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

func encode(mimeType string, data []byte) domain.Image {
	return domain.Image{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}
}
