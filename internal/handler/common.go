package handler

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/vcplayer/internal/domain"
	"github.com/set-night/vcplayer/internal/middleware"
	tg "github.com/set-night/vcplayer/internal/telegram"
)

// commandArgs returns the words after the command.
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return nil
	}
	return fields[1:]
}

// commandName returns the command without the slash and bot mention.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	return strings.ToLower(name)
}

func (h *Handler) reply(ctx context.Context, b *bot.Bot, msg *models.Message, text string) {
	id := msg.ID
	if err := tg.SendLongMessage(ctx, b, msg.Chat.ID, text, &id, nil); err != nil {
		slog.Warn("reply", "chat_id", msg.Chat.ID, "error", err)
	}
}

// replyError shows err to the chat. Errors without a dedicated text are logged.
func (h *Handler) replyError(ctx context.Context, b *bot.Bot, msg *models.Message, op string, err error) {
	text := domain.UserMessage(err)
	if text == domain.GenericMessage {
		slog.Error(op, "chat_id", msg.Chat.ID, "error", err)
		if h.tgLogger != nil {
			h.tgLogger.LogError(err, op)
		}
	} else {
		slog.Debug(op, "chat_id", msg.Chat.ID, "error", err)
	}
	h.reply(ctx, b, msg, text)
}

// canControl reports whether the sender may drive playback in this chat:
// bot admins, chat administrators and anonymous admins may.
func (h *Handler) canControl(ctx context.Context, chatID int64, msg *models.Message) bool {
	caller := middleware.GetCaller(ctx)
	if caller != nil && caller.IsAdmin {
		return true
	}
	if caller != nil && caller.ChatType == models.ChatTypePrivate {
		return true
	}
	if msg != nil && msg.SenderChat != nil && msg.SenderChat.ID == chatID {
		return true
	}
	if caller == nil || caller.UserID == 0 {
		return false
	}

	status, err := h.admin.MemberStatus(ctx, chatID, caller.UserID)
	if err != nil {
		slog.Warn("check chat admin", "chat_id", chatID, "user_id", caller.UserID, "error", err)
		return false
	}
	return status == domain.MemberStatusCreator || status == domain.MemberStatusAdministrator
}

// guard replies when the sender may not control playback.
func (h *Handler) guard(ctx context.Context, b *bot.Bot, msg *models.Message) bool {
	if h.canControl(ctx, msg.Chat.ID, msg) {
		return true
	}
	h.reply(ctx, b, msg, "🔒 Only chat admins can do that.")
	return false
}
