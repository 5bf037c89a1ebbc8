package telegram

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
	"github.com/dskvich/banana-draw-bot/pkg/logger"
	"github.com/dskvich/banana-draw-bot/pkg/render"
)

// Platform is the platform name used in origins of Telegram chats.
const Platform = "telegram"

// maxMediaGroup is the Telegram limit of items in one album.
const maxMediaGroup = 10

const deliveryFailedText = "❌ Failed to deliver the reply"

var errNoAvatar = errors.New("user has no profile photo")

type client struct {
	bot       *tgbotapi.BotAPI
	updatesCh tgbotapi.UpdatesChannel
}

func NewClient(token string, updateTimeout int) (*client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating bot api instance: %w", err)
	}

	slog.Info("authorized on telegram", "account", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeout

	return &client{
		bot:       bot,
		updatesCh: bot.GetUpdatesChan(u),
	}, nil
}

func (c *client) GetUpdates() tgbotapi.UpdatesChannel {
	return c.updatesCh
}

func (c *client) Stop() {
	c.bot.StopReceivingUpdates()
}

func (c *client) UserName() string {
	return c.bot.Self.UserName
}

// FileURL resolves a file id into a download link.
func (c *client) FileURL(fileID string) (string, error) {
	url, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("getting file url: %w", err)
	}
	return url, nil
}

// AvatarURL resolves the largest size of the user's current profile photo.
func (c *client) AvatarURL(_ context.Context, userID string) (string, error) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("parsing user id %q: %w", userID, err)
	}

	photos, err := c.bot.GetUserProfilePhotos(tgbotapi.UserProfilePhotosConfig{UserID: id, Limit: 1})
	if err != nil {
		return "", fmt.Errorf("getting profile photos: %w", err)
	}

	fileID, ok := largestPhoto(photos)
	if !ok {
		return "", errNoAvatar
	}
	return c.FileURL(fileID)
}

// SendResponse delivers r as a photo, an album or an HTML text message.
func (c *client) SendResponse(ctx context.Context, r *domain.Response) {
	if r.Err != nil {
		slog.ErrorContext(ctx, "Sending error response", logger.Err(r.Err))
		c.sendText(ctx, r.ChatID, r.ReplyToMessageID, "❌ "+r.Err.Error())
		return
	}

	if len(r.Images) > 0 {
		if err := c.sendImages(r); err != nil {
			slog.ErrorContext(ctx, "Sending images", "chat_id", r.ChatID, logger.Err(err))
			c.sendText(ctx, r.ChatID, r.ReplyToMessageID, deliveryFailedText)
		}
	}

	if r.Text != "" {
		c.sendText(ctx, r.ChatID, r.ReplyToMessageID, r.Text)
	}
}

func (c *client) sendImages(r *domain.Response) error {
	files := make([]tgbotapi.FileBytes, 0, len(r.Images))
	for i, img := range r.Images {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return fmt.Errorf("decoding image %d: %w", i, err)
		}
		files = append(files, tgbotapi.FileBytes{Name: fileName(i, img.MimeType), Bytes: data})
	}

	if len(files) == 1 {
		photo := tgbotapi.NewPhoto(r.ChatID, files[0])
		photo.ReplyToMessageID = r.ReplyToMessageID
		if _, err := c.bot.Send(photo); err != nil {
			return fmt.Errorf("sending photo: %w", err)
		}
		return nil
	}

	for _, chunk := range lo.Chunk(files, maxMediaGroup) {
		media := lo.Map(chunk, func(f tgbotapi.FileBytes, _ int) any {
			return tgbotapi.NewInputMediaPhoto(f)
		})
		group := tgbotapi.NewMediaGroup(r.ChatID, media)
		group.ReplyToMessageID = r.ReplyToMessageID
		if _, err := c.bot.SendMediaGroup(group); err != nil {
			return fmt.Errorf("sending media group: %w", err)
		}
	}
	return nil
}

// sendText tries HTML first and falls back to plain text when Telegram
// rejects the markup.
func (c *client) sendText(ctx context.Context, chatID int64, replyTo int, text string) {
	msg := tgbotapi.NewMessage(chatID, render.ToHTML(text))
	msg.ReplyToMessageID = replyTo
	msg.ParseMode = tgbotapi.ModeHTML

	_, err := c.bot.Send(msg)
	if err == nil {
		return
	}
	slog.WarnContext(ctx, "Sending HTML message, retrying as plain text", logger.Err(err))

	plain := tgbotapi.NewMessage(chatID, text)
	plain.ReplyToMessageID = replyTo
	if _, err := c.bot.Send(plain); err != nil {
		slog.ErrorContext(ctx, "Sending message", "chat_id", chatID, logger.Err(err))
	}
}

func fileName(i int, mimeType string) string {
	ext := ".png"
	if m := mimetype.Lookup(mimeType); m != nil && m.Extension() != "" {
		ext = m.Extension()
	}
	return fmt.Sprintf("banana_%d%s", i+1, ext)
}

func largestPhoto(photos tgbotapi.UserProfilePhotos) (string, bool) {
	if len(photos.Photos) == 0 || len(photos.Photos[0]) == 0 {
		return "", false
	}
	sizes := photos.Photos[0]
	return sizes[len(sizes)-1].FileID, true
}
