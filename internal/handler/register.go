package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	tg "github.com/set-night/vcplayer/internal/telegram"
)

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/play", bot.MatchTypePrefix, h.handlePlay)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/vplay", bot.MatchTypePrefix, h.handlePlay)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/skip", bot.MatchTypePrefix, h.handleSkip)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/pause", bot.MatchTypePrefix, h.handlePause)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/resume", bot.MatchTypePrefix, h.handleResume)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/mute", bot.MatchTypePrefix, h.handleMute)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/unmute", bot.MatchTypePrefix, h.handleUnmute)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/end", bot.MatchTypePrefix, h.handleEnd)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/stop", bot.MatchTypePrefix, h.handleEnd)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/seek", bot.MatchTypePrefix, h.handleSeek)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/speed", bot.MatchTypePrefix, h.handleSpeed)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/volume", bot.MatchTypePrefix, h.handleVolume)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/loop", bot.MatchTypePrefix, h.handleLoop)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/queue", bot.MatchTypePrefix, h.handleQueue)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/remove", bot.MatchTypePrefix, h.handleRemove)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/clear", bot.MatchTypePrefix, h.handleClear)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypePrefix, h.handleStats)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/autoend", bot.MatchTypePrefix, h.handleAutoEnd)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/logger", bot.MatchTypePrefix, h.handleLogger)

	// Playback control callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "ctl_", bot.MatchTypePrefix, h.handleControl)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackQueue+"_", bot.MatchTypePrefix, h.handleQueuePage)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "noop", bot.MatchTypeExact, h.handleNoop)

	// Assistant membership changes
	h.bot.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.ChatMember != nil
	}, h.handleChatMember)
}

// handleNoop acknowledges buttons that only display something.
func (h *Handler) handleNoop(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
		})
	}
}
