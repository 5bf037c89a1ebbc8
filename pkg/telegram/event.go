package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
	"github.com/dskvich/banana-draw-bot/pkg/logger"
)

// FileURLResolver turns a Telegram file id into a download link.
type FileURLResolver func(fileID string) (string, error)

// toEvent converts an incoming message. Messages without a sender are
// skipped.
func toEvent(ctx context.Context, msg *tgbotapi.Message, botName string, resolve FileURLResolver) (domain.Event, bool) {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return domain.Event{}, false
	}

	text := msg.Text
	entities := msg.Entities
	if text == "" {
		text, entities = msg.Caption, msg.CaptionEntities
	}

	mention := "@" + botName
	mentioned := msg.Chat.IsPrivate() ||
		msg.IsCommand() ||
		(botName != "" && strings.Contains(text, mention)) ||
		(msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil && msg.ReplyToMessage.From.UserName == botName)
	if botName != "" {
		text = strings.ReplaceAll(text, mention, "")
	}

	e := domain.Event{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		SenderID:  strconv.FormatInt(msg.From.ID, 10),
		Platform:  Platform,
		Origin:    domain.Origin(Platform, msg.Chat.ID),
		Text:      strings.TrimSpace(text),
		Mentioned: mentioned,
		ImageURLs: imageURLs(ctx, msg, resolve),
	}

	if msg.ReplyToMessage != nil {
		e.QuotedImageURLs = imageURLs(ctx, msg.ReplyToMessage, resolve)
	}

	for _, entity := range entities {
		if entity.Type == "text_mention" && entity.User != nil {
			e.AtUserIDs = append(e.AtUserIDs, strconv.FormatInt(entity.User.ID, 10))
		}
	}

	return e, true
}

// imageURLs returns the largest size of an attached photo and any image
// sent as a document.
func imageURLs(ctx context.Context, msg *tgbotapi.Message, resolve FileURLResolver) []string {
	var fileIDs []string
	if n := len(msg.Photo); n > 0 {
		fileIDs = append(fileIDs, msg.Photo[n-1].FileID)
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		fileIDs = append(fileIDs, msg.Document.FileID)
	}

	var urls []string
	for _, id := range fileIDs {
		url, err := resolve(id)
		if err != nil {
			slog.WarnContext(ctx, "Resolving image url", "file_id", id, logger.Err(err))
			continue
		}
		urls = append(urls, url)
	}
	return urls
}
