package workers

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
	"github.com/dskvich/banana-draw-bot/pkg/logger"
)

type Handler interface {
	HandleUpdate(ctx context.Context, update *tgbotapi.Update)
}

type TelegramClient interface {
	GetUpdates() tgbotapi.UpdatesChannel
	SendResponse(ctx context.Context, response *domain.Response)
}

type telegramUpdateListener struct {
	client     TelegramClient
	handler    Handler
	responseCh <-chan domain.Response
	pool       chan struct{}
	wg         sync.WaitGroup
}

func NewTelegramUpdateListener(
	client TelegramClient,
	handler Handler,
	responseCh <-chan domain.Response,
	poolSize int,
) *telegramUpdateListener {
	return &telegramUpdateListener{
		client:     client,
		handler:    handler,
		responseCh: responseCh,
		pool:       make(chan struct{}, max(poolSize, 1)),
	}
}

func (t *telegramUpdateListener) Name() string { return "telegram_listener_worker" }

func (t *telegramUpdateListener) Start(ctx context.Context) error {
	slog.Info("Starting worker", "name", t.Name())
	defer slog.Info("Worker stopped", "name", t.Name())

	updates := t.client.GetUpdates()

	for {
		select {
		case <-ctx.Done():
			t.drain()
			return nil
		case update, ok := <-updates:
			if !ok {
				t.drain()
				return nil
			}
			t.dispatch(ctx, update)
		case response := <-t.responseCh:
			t.client.SendResponse(ctx, &response)
		}
	}
}

// dispatch handles update on its own goroutine once a pool slot is free,
// delivering responses while it waits.
func (t *telegramUpdateListener) dispatch(ctx context.Context, update tgbotapi.Update) {
	for {
		select {
		case t.pool <- struct{}{}:
			t.wg.Add(1)
			go func() {
				defer func() {
					<-t.pool
					t.wg.Done()
				}()
				t.processUpdate(ctx, &update)
			}()
			return
		case response := <-t.responseCh:
			t.client.SendResponse(ctx, &response)
		}
	}
}

// drain keeps delivering responses until in-flight updates finish.
func (t *telegramUpdateListener) drain() {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-done:
			return
		case response := <-t.responseCh:
			t.client.SendResponse(context.Background(), &response)
		}
	}
}

func (t *telegramUpdateListener) processUpdate(ctx context.Context, update *tgbotapi.Update) {
	ctx = logger.ContextWithEventID(ctx, strconv.Itoa(update.UpdateID))

	if update.Message == nil {
		slog.DebugContext(ctx, "Skipping non-message update")
		return
	}

	slog.InfoContext(ctx, "Processing update", "chat_id", update.Message.Chat.ID)
	t.handler.HandleUpdate(ctx, update)
}
