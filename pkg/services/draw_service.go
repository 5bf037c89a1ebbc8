package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
	"github.com/dskvich/banana-draw-bot/pkg/generator"
	"github.com/dskvich/banana-draw-bot/pkg/logger"
	"github.com/dskvich/banana-draw-bot/pkg/params"
	"github.com/dskvich/banana-draw-bot/pkg/store"
)

// PlaceholderPrompt in a preset means "use whatever the user wrote".
const PlaceholderPrompt = "anything"

const (
	drawingNotice    = "🎨 Drawing, please wait..."
	noProvidersText  = "❌ No image provider is available, enable one in the plugin config first"
	promptPreviewLen = 60
)

// InsufficientImagesError ends a draw when fewer input images than the
// preset requires were supplied.
type InsufficientImagesError struct {
	Required int
	Got      int
}

func (e *InsufficientImagesError) Error() string {
	return fmt.Sprintf("not enough images: at least %d required, only %d provided", e.Required, e.Got)
}

type DrawStore interface {
	Settings() store.Settings
	Lookup(trigger string) (store.Preset, bool)
	IsWhitelisted(origin string) bool
}

type ImageFetcher interface {
	Fetch(ctx context.Context, urls []string) []domain.Image
}

type ImageDir interface {
	ReadRefs(names []string) []domain.Image
	Save(images []domain.Image) ([]string, error)
}

type ImageGenerator interface {
	Generate(ctx context.Context, providers []domain.Provider, retry int, req domain.GenerateRequest) generator.Result
}

type GenerationRecorder interface {
	Save(ctx context.Context, g domain.Generation) error
}

// AvatarResolver returns a downloadable avatar link for a user of the
// platform it serves.
type AvatarResolver interface {
	AvatarURL(ctx context.Context, userID string) (string, error)
}

type qqAvatars struct{}

func (qqAvatars) AvatarURL(_ context.Context, userID string) (string, error) {
	return fmt.Sprintf("https://q4.qlogo.cn/headimg_dl?dst_uin=%s&spec=640", userID), nil
}

type drawService struct {
	store      DrawStore
	fetcher    ImageFetcher
	dir        ImageDir
	generator  ImageGenerator
	history    GenerationRecorder
	avatars    AvatarResolver
	responseCh chan<- domain.Response
}

// NewDrawService builds the draw flow. history and avatars may be nil;
// avatars serves every platform except QQ, whose links are built locally.
func NewDrawService(
	store DrawStore,
	fetcher ImageFetcher,
	dir ImageDir,
	generator ImageGenerator,
	history GenerationRecorder,
	avatars AvatarResolver,
	responseCh chan<- domain.Response,
) *drawService {
	return &drawService{
		store:      store,
		fetcher:    fetcher,
		dir:        dir,
		generator:  generator,
		history:    history,
		avatars:    avatars,
		responseCh: responseCh,
	}
}

// HandleEvent runs the draw flow for e and reports whether e was addressed
// to a preset. Every failure is answered in the chat.
func (s *drawService) HandleEvent(ctx context.Context, e domain.Event) bool {
	text := e.Text
	if strings.TrimSpace(text) == "" {
		return false
	}

	settings := s.store.Settings()

	text, matched := stripPrefix(text, settings.Prefixes)
	if !e.Mentioned && !settings.CoexistEnabled && len(settings.Prefixes) > 0 && !matched {
		return false
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	trigger := fields[0]

	preset, ok := s.store.Lookup(trigger)
	if !ok {
		return false
	}

	if !s.store.IsWhitelisted(e.Origin) {
		slog.InfoContext(ctx, "Origin is not whitelisted, skipping", "origin", e.Origin)
		return false
	}

	if len(settings.Providers) == 0 {
		s.responseCh <- e.Reply(noProvidersText)
		return true
	}

	s.responseCh <- e.Reply(drawingNotice)

	req := s.buildRequest(preset, text, settings.Defaults)
	slog.InfoContext(ctx, "Generating image", "trigger", trigger, "prompt", lo.Substring(req.Prompt, 0, promptPreviewLen))
	slog.DebugContext(ctx, "Applied params", "params", req.Params.Format())

	images, err := s.collectImages(ctx, e, req.Params, settings.Defaults)
	if err != nil {
		s.reply(ctx, e, err)
		return true
	}
	req.Images = images

	result := s.generator.Generate(ctx, settings.Providers, settings.Retry, req)
	s.record(ctx, e, trigger, req.Prompt, result)

	if result.Err != nil || len(result.Images) == 0 {
		err := result.Err
		if err == nil {
			err = domain.ErrNoImageData
		}
		s.reply(ctx, e, err)
		return true
	}

	slog.InfoContext(ctx, "Image generated", "provider", result.Provider, "model", result.Model, "count", len(result.Images))
	s.responseCh <- e.ReplyImages(result.Images)

	if settings.SaveImage {
		paths, err := s.dir.Save(result.Images)
		for _, path := range paths {
			slog.InfoContext(ctx, "Image saved", "path", path)
		}
		if err != nil {
			slog.ErrorContext(ctx, "Saving generated images", logger.Err(err))
		}
	}
	return true
}

// buildRequest merges the user's flags over the preset options. The preset
// prompt wins unless it is the placeholder.
func (s *drawService) buildRequest(preset store.Preset, text string, defaults domain.Defaults) domain.GenerateRequest {
	user := params.Parse(text)

	prompt := preset.Params.Prompt()
	if prompt == PlaceholderPrompt || prompt == "" {
		prompt = user.Params.Prompt()
	}

	merged := preset.Params.Merge(user.Params.Options())
	merged[params.PromptKey] = params.String(prompt)

	return domain.GenerateRequest{
		Prompt:   prompt,
		Params:   merged,
		Defaults: defaults,
	}
}

// collectImages gathers reference files first, then downloads as many of the
// event's image URLs as still fit under max_images.
func (s *drawService) collectImages(ctx context.Context, e domain.Event, p params.Params, defaults domain.Defaults) ([]domain.Image, error) {
	minImages := intParam(p, params.MinImages, defaults.MinImages)
	maxImages := intParam(p, params.MaxImages, defaults.MaxImages)

	urls := append(append([]string{}, e.QuotedImageURLs...), e.ImageURLs...)
	if len(urls) < minImages {
		urls = s.appendAvatars(ctx, urls, e, minImages)
	}

	referNames, ok := p.String(params.ReferImages)
	if !ok {
		referNames = defaults.ReferImages
	}
	images := s.readRefs(referNames, maxImages)

	if got := len(urls) + len(images); got < minImages {
		return nil, &InsufficientImagesError{Required: minImages, Got: got}
	}

	room := maxImages - len(images)
	if room <= 0 {
		slog.WarnContext(ctx, "Reference images fill max_images, skipping downloads", "max_images", maxImages)
		return images, nil
	}

	if len(urls) > room {
		urls = urls[:room]
	}
	if len(urls) == 0 {
		return images, nil
	}

	fetched := s.fetcher.Fetch(ctx, urls)
	if len(fetched) == 0 {
		slog.WarnContext(ctx, "All image downloads failed", "count", len(urls))
	}
	images = append(images, fetched...)
	if len(images) < minImages {
		return nil, &InsufficientImagesError{Required: minImages, Got: len(images)}
	}
	return images, nil
}

func (s *drawService) readRefs(names string, maxImages int) []domain.Image {
	var images []domain.Image
	for _, name := range strings.Split(names, ",") {
		if len(images) >= maxImages {
			break
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		images = append(images, s.dir.ReadRefs([]string{name})...)
	}
	return images
}

func (s *drawService) reply(ctx context.Context, e domain.Event, err error) {
	slog.WarnContext(ctx, "Draw failed", logger.Err(err))

	s.responseCh <- e.Reply("❌ " + err.Error())
}

func (s *drawService) record(ctx context.Context, e domain.Event, trigger, prompt string, result generator.Result) {
	if s.history == nil {
		return
	}

	g := domain.Generation{
		Origin:     e.Origin,
		SenderID:   e.SenderID,
		Trigger:    trigger,
		Prompt:     lo.Substring(prompt, 0, promptPreviewLen),
		Provider:   result.Provider,
		Model:      result.Model,
		ImageCount: len(result.Images),
	}
	if result.Err != nil {
		g.Error = result.Err.Error()
	}

	if err := s.history.Save(ctx, g); err != nil {
		slog.ErrorContext(ctx, "Saving generation history", logger.Err(err))
	}
}

func stripPrefix(text string, prefixes []string) (string, bool) {
	for _, prefix := range prefixes {
		if rest, ok := strings.CutPrefix(text, prefix); ok {
			return strings.TrimLeft(rest, " \t"), true
		}
	}
	return text, false
}

// appendAvatars tops urls up to minImages with avatars of mentioned users,
// then the sender's. Users without a resolvable avatar are skipped.
func (s *drawService) appendAvatars(ctx context.Context, urls []string, e domain.Event, minImages int) []string {
	var resolver AvatarResolver = qqAvatars{}
	if e.Platform != domain.PlatformQQ {
		if s.avatars == nil {
			return urls
		}
		resolver = s.avatars
	}

	for _, id := range append(append([]string{}, e.AtUserIDs...), e.SenderID) {
		if len(urls) >= minImages {
			break
		}
		url, err := resolver.AvatarURL(ctx, id)
		if err != nil {
			slog.WarnContext(ctx, "Resolving avatar", "user_id", id, logger.Err(err))
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

func intParam(p params.Params, key string, def int) int {
	if v, ok := p.Int(key); ok {
		return v
	}
	return def
}
