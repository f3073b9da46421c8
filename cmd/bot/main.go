package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/set-night/vcplayer"
	"github.com/set-night/vcplayer/internal/config"
	"github.com/set-night/vcplayer/internal/downloader"
	"github.com/set-night/vcplayer/internal/engine"
	"github.com/set-night/vcplayer/internal/handler"
	"github.com/set-night/vcplayer/internal/metrics"
	"github.com/set-night/vcplayer/internal/middleware"
	"github.com/set-night/vcplayer/internal/repository"
	"github.com/set-night/vcplayer/internal/service"
	"github.com/set-night/vcplayer/internal/telegram"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("bot stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	// Connect to database
	db, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(vcplayer.MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		return err
	}
	store := repository.NewStore(db)

	// Logger pointer for use in the recover closure
	var tgLogger *telegram.TelegramLogger

	// Create bot
	b, err := bot.New(cfg.BotToken,
		bot.WithWorkers(config.BotWorkers),
		bot.WithAllowedUpdates(bot.AllowedUpdates{"message", "callback_query", "chat_member"}),
		bot.WithMiddlewares(
			middleware.Recover(func(err error, where string) {
				if tgLogger != nil {
					tgLogger.LogError(err, where)
				}
			}),
			middleware.Logging(),
			middleware.RateLimit(cfg.RateLimitPerMinute),
			middleware.CallerLoader(cfg),
		),
	)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	// Get bot info
	me, err := b.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("get bot info: %w", err)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	tgLogger = telegram.NewTelegramLogger(b, cfg)
	admin := telegram.NewRoomAdmin(b)
	notifier := telegram.NewNotifier(b, tgLogger)

	dl, err := downloader.New(cfg.DownloadsDir, telegram.NewFiles(b), cfg.MaxConcurrentDownloads)
	if err != nil {
		return err
	}

	// Assistants, one per engine sidecar
	state := service.NewCallState(nil)
	pool := service.NewAssistantPool(store, state)
	var engines []*engine.Client
	for _, endpoint := range cfg.EngineEndpoints {
		client := engine.New(endpoint, cfg.EngineToken)
		acct, err := client.Me(ctx)
		if err != nil {
			return fmt.Errorf("identify assistant at %s: %w", endpoint, err)
		}
		name := service.AssistantName(acct.ID)
		if _, dup := pool.Get(name); dup {
			return fmt.Errorf("assistant %d is served by more than one engine", acct.ID)
		}
		pool.Register(&service.Assistant{
			Name:     name,
			ID:       acct.ID,
			Username: acct.Username,
			Account:  client,
			Calls:    client,
		})
		engines = append(engines, client)
		slog.Info("assistant registered", "endpoint", endpoint, "id", acct.ID, "username", acct.Username)
	}

	sessions := service.NewSessionCache()
	locks := service.NewRoomLocks()
	player := service.NewPlayer(service.PlayerDeps{
		Pool:     pool,
		Joiner:   service.NewJoinCoordinator(admin, state),
		Sessions: sessions,
		State:    state,
		Locks:    locks,
		Admin:    admin,
		Store:    store,
		Logger:   tgLogger,
		BotID:    me.ID,
	})
	router := service.NewRouter(service.RouterDeps{
		Player:          player,
		Sessions:        sessions,
		Locks:           locks,
		Pool:            pool,
		State:           state,
		Downloader:      dl,
		Notifier:        notifier,
		MaxQueue:        cfg.MaxQueue,
		DownloadTimeout: cfg.DownloadTimeout,
	})
	reaper := service.NewReaper(service.ReaperDeps{
		Sessions: sessions,
		Player:   player,
		Router:   router,
		Store:    store,
		Notifier: notifier,
		BotID:    me.ID,
		Interval: cfg.ReaperInterval,
	})

	// Initialize handler
	h := handler.New(handler.Deps{
		Bot:         b,
		Cfg:         cfg,
		Router:      router,
		Player:      player,
		Sessions:    sessions,
		State:       state,
		Pool:        pool,
		Admin:       admin,
		Downloader:  dl,
		Settings:    store,
		TgLogger:    tgLogger,
		BotID:       me.ID,
		BotUsername: me.Username,
	})
	h.Register()

	g, ctx := errgroup.WithContext(ctx)

	for _, client := range engines {
		g.Go(func() error { return client.Run(ctx) })
	}
	g.Go(func() error { return router.Run(ctx) })
	g.Go(func() error { return reaper.Run(ctx) })
	g.Go(func() error { return metrics.Serve(ctx, cfg.MetricsAddr) })

	if cfg.AutoLeave {
		leaver := service.NewAutoLeaver(pool, sessions, state)
		g.Go(func() error { return leaver.Run(ctx, cfg.AutoLeaveSchedule) })
	}

	// Expired cache entries
	g.Go(func() error {
		ticker := time.NewTicker(config.CacheCleanup)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := state.Prune(); n > 0 {
					slog.Debug("pruned call state", "entries", n)
				}
			}
		}
	})

	// Start bot
	g.Go(func() error {
		slog.Info("starting bot", "username", me.Username, "id", me.ID)
		if cfg.DropPendingUpdates {
			if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
				slog.Warn("drop pending updates", "error", err)
			}
		}
		b.Start(ctx)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
