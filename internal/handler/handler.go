package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/set-night/vcplayer/internal/config"
	"github.com/set-night/vcplayer/internal/service"
	"github.com/set-night/vcplayer/internal/telegram"
)

// Settings are the bot-wide switches admins can flip.
type Settings interface {
	GetAutoEnd(ctx context.Context, botID int64) (bool, error)
	SetAutoEnd(ctx context.Context, botID int64, on bool) error
	GetLoggerStatus(ctx context.Context, botID int64) (bool, error)
	SetLoggerStatus(ctx context.Context, botID int64, on bool) error
}

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot         *bot.Bot
	cfg         *config.Config
	router      *service.Router
	player      *service.Player
	sessions    *service.SessionCache
	state       *service.CallState
	pool        *service.AssistantPool
	admin       service.RoomAdmin
	downloader  service.Downloader
	settings    Settings
	tgLogger    *telegram.TelegramLogger
	botID       int64
	botUsername string
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot         *bot.Bot
	Cfg         *config.Config
	Router      *service.Router
	Player      *service.Player
	Sessions    *service.SessionCache
	State       *service.CallState
	Pool        *service.AssistantPool
	Admin       service.RoomAdmin
	Downloader  service.Downloader
	Settings    Settings
	TgLogger    *telegram.TelegramLogger
	BotID       int64
	BotUsername string
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:         deps.Bot,
		cfg:         deps.Cfg,
		router:      deps.Router,
		player:      deps.Player,
		sessions:    deps.Sessions,
		state:       deps.State,
		pool:        deps.Pool,
		admin:       deps.Admin,
		downloader:  deps.Downloader,
		settings:    deps.Settings,
		tgLogger:    deps.TgLogger,
		botID:       deps.BotID,
		botUsername: deps.BotUsername,
	}
}
