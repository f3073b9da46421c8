package handler

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	tg "github.com/set-night/vcplayer/internal/telegram"
)

const helpText = "🎧 *Voice chat player*\n\n" +
	"/play <link> · play audio (or reply to a file)\n" +
	"/vplay <link> · play video\n" +
	"/pause · /resume · /skip · /end\n" +
	"/mute · /unmute · /volume <1-200>\n" +
	"/seek <sec> · /speed <0.5-4> · /loop <0-10>\n" +
	"/queue · /remove <n> · /clear\n" +
	"/stats"

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil {
		return
	}

	var markup models.ReplyMarkup
	if msg.Chat.Type == models.ChatTypePrivate && h.botUsername != "" {
		markup = tg.InlineKeyboard(tg.ButtonRow(tg.URLButton(
			"➕ Add me to a group",
			fmt.Sprintf("https://t.me/%s?startgroup=true", h.botUsername),
		)))
	}
	if err := tg.SendLongMessage(ctx, b, msg.Chat.ID, helpText, nil, markup); err != nil {
		h.replyError(ctx, b, msg, "start", err)
	}
}
