package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
)

// EventHandler handles an event and reports whether it consumed it.
type EventHandler interface {
	HandleEvent(ctx context.Context, e domain.Event) bool
}

type Bot interface {
	UserName() string
	FileURL(fileID string) (string, error)
}

type handler struct {
	bot      Bot
	handlers []EventHandler
}

// NewHandler passes every message to handlers in order until one consumes it.
func NewHandler(bot Bot, handlers ...EventHandler) *handler {
	return &handler{
		bot:      bot,
		handlers: handlers,
	}
}

func (h *handler) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	e, ok := toEvent(ctx, update.Message, h.bot.UserName(), h.bot.FileURL)
	if !ok {
		slog.DebugContext(ctx, "Skipping update without message")
		return
	}

	for _, eh := range h.handlers {
		if eh.HandleEvent(ctx, e) {
			slog.DebugContext(ctx, "Event handled", "handler", fmt.Sprintf("%T", eh))
			return
		}
	}
}
