package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/vcplayer/internal/config"
	"github.com/set-night/vcplayer/internal/domain"
	tg "github.com/set-night/vcplayer/internal/telegram"
)

// renderQueue renders one page of the queue. Page 0 starts with the track on air.
func renderQueue(queue []*domain.Track, loop, page int) (string, *models.InlineKeyboardMarkup) {
	if len(queue) == 0 {
		return "📭 The queue is empty.", nil
	}

	upcoming := queue[1:]
	pages := (len(upcoming) + config.QueuePageSize - 1) / config.QueuePageSize
	if pages == 0 {
		pages = 1
	}
	page = max(0, min(page, pages-1))

	var sb strings.Builder
	cur := queue[0]
	fmt.Fprintf(&sb, "🎶 *Queue* (%d)\n\n▶️ *%s* (%s)", len(queue), tg.EscapeMarkdown(cur.Title), domain.FormatDuration(cur.Duration))
	if cur.User != "" {
		fmt.Fprintf(&sb, " · %s", tg.EscapeMarkdown(cur.User))
	}
	if loop > 0 {
		fmt.Fprintf(&sb, " 🔁%d", loop)
	}
	sb.WriteString("\n")

	start := page * config.QueuePageSize
	end := min(start+config.QueuePageSize, len(upcoming))
	if start < end {
		sb.WriteString("\n")
	}
	for i := start; i < end; i++ {
		t := upcoming[i]
		fmt.Fprintf(&sb, "%d. %s (%s)", i+1, tg.EscapeMarkdown(t.Title), domain.FormatDuration(t.Duration))
		if t.User != "" {
			fmt.Fprintf(&sb, " · %s", tg.EscapeMarkdown(t.User))
		}
		sb.WriteString("\n")
	}

	if pages == 1 {
		return sb.String(), nil
	}
	return sb.String(), tg.InlineKeyboard(tg.PaginationRow(page, pages, tg.CallbackQueue))
}

func (h *Handler) handleQueue(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID
	text, kb := renderQueue(h.sessions.Queue(chatID), h.sessions.LoopCount(chatID), 0)

	params := &bot.SendMessageParams{
		ChatID:          chatID,
		Text:            text,
		ParseMode:       models.ParseModeMarkdownV1,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID, AllowSendingWithoutReply: true},
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := b.SendMessage(ctx, params); err != nil {
		params.ParseMode = ""
		b.SendMessage(ctx, params)
	}
}

func (h *Handler) handleQueuePage(ctx context.Context, b *bot.Bot, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cq.ID})

	msg := cq.Message.Message
	if msg == nil {
		return
	}
	page, err := strconv.Atoi(strings.TrimPrefix(cq.Data, tg.CallbackQueue+"_"))
	if err != nil {
		return
	}

	text, kb := renderQueue(h.sessions.Queue(msg.Chat.ID), h.sessions.LoopCount(msg.Chat.ID), page)
	var markup models.ReplyMarkup
	if kb != nil {
		markup = kb
	}
	tg.EditMessage(ctx, b, msg.Chat.ID, msg.ID, text, markup)
}

func (h *Handler) handleRemove(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || !h.guard(ctx, b, msg) {
		return
	}

	index, ok := intArg(msg.Text)
	if !ok {
		h.reply(ctx, b, msg, "🗑 Usage: `/remove <position>` (see /queue).")
		return
	}
	track, err := h.router.Remove(msg.Chat.ID, index)
	if err != nil {
		h.replyError(ctx, b, msg, "remove", err)
		return
	}
	h.reply(ctx, b, msg, fmt.Sprintf("🗑 Removed *%s* from the queue.", tg.EscapeMarkdown(track.Title)))
}

func (h *Handler) handleClear(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || !h.guard(ctx, b, msg) {
		return
	}
	n := h.router.ClearQueue(msg.Chat.ID)
	if n == 0 {
		h.reply(ctx, b, msg, "📭 Nothing queued.")
		return
	}
	h.reply(ctx, b, msg, fmt.Sprintf("🧹 Cleared %d queued track(s).", n))
}
