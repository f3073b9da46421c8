package handler

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/vcplayer/internal/service"
)

func renderStats(s service.Stats) string {
	return fmt.Sprintf(
		"📊 *Stats*\n\n"+
			"🤖 Assistant: `%s`\n"+
			"📶 Ping: *%.2f ms*\n"+
			"🖥 CPU: *%.1f%%*\n"+
			"🎧 Active chats: *%d*",
		s.Assistant, s.PingMs, s.CPU, s.Sessions,
	)
}

func (h *Handler) handleStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	stats, err := h.player.Stats(ctx, msg.Chat.ID)
	if err != nil {
		h.replyError(ctx, b, msg, "stats", err)
		return
	}
	h.reply(ctx, b, msg, renderStats(stats))
}
