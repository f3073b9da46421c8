package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/vcplayer/internal/metrics"
)

// Logging returns middleware that logs update processing time.
func Logging() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()

			updateType := "unknown"
			var chatID int64
			var userID int64

			switch {
			case update.Message != nil:
				updateType = "message"
				chatID = update.Message.Chat.ID
				if update.Message.From != nil {
					userID = update.Message.From.ID
				}
			case update.CallbackQuery != nil:
				updateType = "callback_query"
				if update.CallbackQuery.Message.Message != nil {
					chatID = update.CallbackQuery.Message.Message.Chat.ID
				}
				userID = update.CallbackQuery.From.ID
			case update.ChatMember != nil:
				updateType = "chat_member"
				chatID = update.ChatMember.Chat.ID
				userID = update.ChatMember.From.ID
			case update.MyChatMember != nil:
				updateType = "my_chat_member"
				chatID = update.MyChatMember.Chat.ID
				userID = update.MyChatMember.From.ID
			}

			next(ctx, b, update)

			metrics.Updates.WithLabelValues(updateType).Inc()
			slog.Debug("update processed",
				"type", updateType,
				"chat_id", chatID,
				"user_id", userID,
				"duration", time.Since(start),
			)
		}
	}
}
