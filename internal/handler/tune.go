package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/vcplayer/internal/config"
	"github.com/set-night/vcplayer/internal/domain"
)

// intArg parses the first argument as an int.
func intArg(text string) (int, bool) {
	args := commandArgs(text)
	if len(args) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(args[0])
	return n, err == nil
}

func (h *Handler) handleSeek(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || !h.guard(ctx, b, msg) {
		return
	}
	chatID := msg.Chat.ID

	step, ok := intArg(msg.Text)
	if !ok {
		h.reply(ctx, b, msg, fmt.Sprintf("⏩ Usage: `/seek <seconds>` (at least %d).", config.MinSeek))
		return
	}
	if step < config.MinSeek {
		h.reply(ctx, b, msg, fmt.Sprintf("⚠️ Seek at least %d seconds.", config.MinSeek))
		return
	}

	toSeek, err := h.player.Seek(ctx, chatID, step)
	if err != nil {
		h.replyError(ctx, b, msg, "seek", err)
		return
	}
	h.reply(ctx, b, msg, fmt.Sprintf("⏩ Seeked to %s.", domain.FormatDuration(toSeek)))
}

func (h *Handler) handleSpeed(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || !h.guard(ctx, b, msg) {
		return
	}

	args := commandArgs(msg.Text)
	if len(args) == 0 {
		h.reply(ctx, b, msg, fmt.Sprintf("🏃 Usage: `/speed <%.1f-%.1f>`", config.MinSpeed, config.MaxSpeed))
		return
	}
	speed, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		h.replyError(ctx, b, msg, "speed", domain.ErrBadSpeedRange)
		return
	}

	if err := h.player.ChangeSpeed(ctx, msg.Chat.ID, speed); err != nil {
		h.replyError(ctx, b, msg, "speed", err)
		return
	}
	h.reply(ctx, b, msg, fmt.Sprintf("🏃 Speed set to %sx.", strconv.FormatFloat(speed, 'f', -1, 64)))
}

func (h *Handler) handleVolume(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || !h.guard(ctx, b, msg) {
		return
	}

	volume, ok := intArg(msg.Text)
	if !ok {
		h.reply(ctx, b, msg, fmt.Sprintf("🔊 Usage: `/volume <%d-%d>`", config.MinVolume, config.MaxVolume))
		return
	}
	if !h.sessions.IsActive(msg.Chat.ID) {
		h.replyError(ctx, b, msg, "volume", domain.ErrNothingPlaying)
		return
	}
	if err := h.player.ChangeVolume(ctx, msg.Chat.ID, volume); err != nil {
		h.replyError(ctx, b, msg, "volume", err)
		return
	}
	h.reply(ctx, b, msg, fmt.Sprintf("🔊 Volume set to %d%%.", volume))
}

func (h *Handler) handleLoop(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || !h.guard(ctx, b, msg) {
		return
	}

	count, ok := intArg(msg.Text)
	if !ok {
		h.reply(ctx, b, msg, fmt.Sprintf("🔁 Usage: `/loop <0-%d>`", config.MaxLoop))
		return
	}
	if err := h.router.SetLoop(msg.Chat.ID, count); err != nil {
		h.replyError(ctx, b, msg, "loop", err)
		return
	}
	if count == 0 {
		h.reply(ctx, b, msg, "🔁 Loop disabled.")
		return
	}
	h.reply(ctx, b, msg, fmt.Sprintf("🔁 The current track will repeat %d more time(s).", count))
}
