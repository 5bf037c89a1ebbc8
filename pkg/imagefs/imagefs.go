package imagefs

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
	"github.com/dskvich/banana-draw-bot/pkg/logger"
)

const (
	referDir = "refer_images"
	saveDir  = "save_images"
)

// Dir is the plugin data directory holding reference and saved images.
type Dir struct {
	root string
	now  func() time.Time
}

func New(root string) *Dir {
	return &Dir{root: root, now: time.Now}
}

// Init creates the reference and save directories.
func (d *Dir) Init() error {
	for _, sub := range []string{referDir, saveDir} {
		if err := os.MkdirAll(filepath.Join(d.root, sub), 0o755); err != nil {
			return fmt.Errorf("creating '%s' directory: %w", sub, err)
		}
	}
	return nil
}

// ReadRefs loads reference images by file name. Unreadable files are logged
// and skipped.
func (d *Dir) ReadRefs(names []string) []domain.Image {
	var images []domain.Image
	for _, name := range names {
		path := filepath.Join(d.root, referDir, filepath.Base(name))

		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping reference image", "path", path, logger.Err(err))
			continue
		}

		mimeType := mime.TypeByExtension(filepath.Ext(path))
		if mimeType == "" {
			mimeType = mimetype.Detect(data).String()
		}
		if i := strings.IndexByte(mimeType, ';'); i >= 0 {
			mimeType = mimeType[:i]
		}

		images = append(images, domain.Image{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(data),
		})
	}
	return images
}

// Save writes every image to the save directory and returns the paths
// written. It stops at the first failure.
func (d *Dir) Save(images []domain.Image) ([]string, error) {
	dir := filepath.Join(d.root, saveDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating save directory: %w", err)
	}

	var paths []string
	for _, img := range images {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return paths, fmt.Errorf("decoding image: %w", err)
		}

		path := filepath.Join(dir, d.fileName(img.MimeType))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("writing image '%s': %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (d *Dir) fileName(mimeType string) string {
	now := d.now()
	ext := ".jpg"
	if m := mimetype.Lookup(mimeType); m != nil && m.Extension() != "" {
		ext = m.Extension()
	}
	return fmt.Sprintf("banana_%s%03d%s", now.Format("20060102150405"), now.Nanosecond()/int(time.Millisecond), ext)
}
