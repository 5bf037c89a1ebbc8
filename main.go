package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v9"

	"github.com/dskvich/banana-draw-bot/pkg/auth"
	"github.com/dskvich/banana-draw-bot/pkg/config"
	"github.com/dskvich/banana-draw-bot/pkg/database"
	"github.com/dskvich/banana-draw-bot/pkg/domain"
	"github.com/dskvich/banana-draw-bot/pkg/fetcher"
	"github.com/dskvich/banana-draw-bot/pkg/gemini"
	"github.com/dskvich/banana-draw-bot/pkg/generator"
	"github.com/dskvich/banana-draw-bot/pkg/imagefs"
	"github.com/dskvich/banana-draw-bot/pkg/logger"
	"github.com/dskvich/banana-draw-bot/pkg/openaicompat"
	"github.com/dskvich/banana-draw-bot/pkg/repository"
	"github.com/dskvich/banana-draw-bot/pkg/services"
	"github.com/dskvich/banana-draw-bot/pkg/store"
	"github.com/dskvich/banana-draw-bot/pkg/telegram"
	"github.com/dskvich/banana-draw-bot/pkg/transport"
	"github.com/dskvich/banana-draw-bot/pkg/workers"
)

type Config struct {
	TelegramBotToken               string  `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`
	TelegramAdminUserIDs           []int64 `env:"TELEGRAM_ADMIN_USER_IDS" envSeparator:" "`
	TelegramUpdateTimeout          int     `env:"TELEGRAM_UPDATE_TIMEOUT" envDefault:"60"`
	TelegramUpdateListenerPoolSize int     `env:"TELEGRAM_UPDATE_LISTENER_POOL_SIZE" envDefault:"10"`
	ConfigPath                     string  `env:"BANANA_CONFIG_PATH" envDefault:"config.yaml"`
	DataDir                        string  `env:"BANANA_DATA_DIR" envDefault:"data"`
	PgURL                          string  `env:"DATABASE_URL"`
	LogNoColor                     bool    `env:"LOG_NO_COLOR"`
}

func main() {
	cfg := Config{}
	envErr := env.Parse(&cfg)

	logOpts := *logger.DefaultOptions
	logOpts.NoColor = cfg.LogNoColor
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, &logOpts)))

	if envErr != nil {
		slog.Error("parsing env config", logger.Err(envErr))
		os.Exit(1)
	}

	if err := runMain(cfg); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func runMain(cfg Config) error {
	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	workerGroup, cleanup, err := setupWorkers(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return workerGroup.Start(ctx)
}

func setupWorkers(ctx context.Context, cfg Config) (workers.Group, func(), error) {
	pluginFile := config.NewFile(cfg.ConfigPath)
	pluginCfg, err := pluginFile.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading plugin config: %w", err)
	}
	pluginStore := store.New(pluginCfg, pluginFile)

	imageDir := imagefs.New(cfg.DataDir)
	if err := imageDir.Init(); err != nil {
		return nil, nil, err
	}

	httpClient, err := transport.NewClient(pluginCfg.Network.Proxy, pluginCfg.Timeout())
	if err != nil {
		return nil, nil, fmt.Errorf("creating http client: %w", err)
	}

	imageGenerator := generator.New(map[string]generator.Caller{
		domain.APITypeGemini: gemini.NewClient(httpClient),
		domain.APITypeOpenAI: openaicompat.NewClient(httpClient),
	})

	var (
		db            *sql.DB
		historySaver  services.GenerationRecorder
		historyReader services.HistoryReader
	)
	if cfg.PgURL != "" {
		db, err = database.NewPostgres(ctx, cfg.PgURL)
		if err != nil {
			return nil, nil, fmt.Errorf("creating db: %w", err)
		}
		generations := repository.NewGenerationsRepository(db)
		historySaver, historyReader = generations, generations
	} else {
		slog.Info("DATABASE_URL is empty, generation history disabled")
	}

	cleanup := func() {
		closeIdle(httpClient)
		if db != nil {
			if err := db.Close(); err != nil {
				slog.Error("closing db", logger.Err(err))
			}
		}
	}

	telegramClient, err := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramUpdateTimeout)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("creating telegram client: %w", err)
	}

	responseCh := make(chan domain.Response)

	adminService := services.NewAdminService(
		pluginStore,
		auth.NewAuthenticator(cfg.TelegramAdminUserIDs),
		repository.NewPendingRepository(),
		historyReader,
		responseCh,
	)

	drawService := services.NewDrawService(
		pluginStore,
		fetcher.New(httpClient),
		imageDir,
		imageGenerator,
		historySaver,
		telegramClient,
		responseCh,
	)

	handler := telegram.NewHandler(telegramClient, adminService, drawService)

	workerGroup := workers.Group{
		workers.NewTelegramUpdateListener(telegramClient, handler, responseCh, cfg.TelegramUpdateListenerPoolSize),
		workers.NewConfigWatcher(cfg.ConfigPath, pluginFile, pluginStore),
	}

	return workerGroup, func() {
		telegramClient.Stop()
		cleanup()
	}, nil
}

func closeIdle(hc *http.Client) {
	hc.CloseIdleConnections()
	slog.Info("closed idle http connections")
}
