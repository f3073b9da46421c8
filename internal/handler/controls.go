package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/vcplayer/internal/domain"
	tg "github.com/set-night/vcplayer/internal/telegram"
)

// control is one playback command: what it does and what to say when it worked.
type control struct {
	op   func(h *Handler, ctx context.Context, chatID int64) error
	done string
}

var controls = map[string]control{
	"skip": {
		op:   func(h *Handler, ctx context.Context, chatID int64) error { return h.router.Skip(ctx, chatID) },
		done: "⏭ Skipped.",
	},
	"pause": {
		op:   func(h *Handler, ctx context.Context, chatID int64) error { return h.player.Pause(ctx, chatID) },
		done: "⏸ Paused.",
	},
	"resume": {
		op:   func(h *Handler, ctx context.Context, chatID int64) error { return h.player.Resume(ctx, chatID) },
		done: "▶️ Resumed.",
	},
	"mute": {
		op:   func(h *Handler, ctx context.Context, chatID int64) error { return h.player.Mute(ctx, chatID) },
		done: "🔇 Muted.",
	},
	"unmute": {
		op:   func(h *Handler, ctx context.Context, chatID int64) error { return h.player.Unmute(ctx, chatID) },
		done: "🔊 Unmuted.",
	},
	"stop": {
		op:   func(h *Handler, ctx context.Context, chatID int64) error { return h.router.Stop(ctx, chatID) },
		done: "⏹ Stopped and left the voice chat.",
	},
}

// runControl applies a control to a room that has something on air.
func (h *Handler) runControl(ctx context.Context, chatID int64, name string) (string, error) {
	c, ok := controls[name]
	if !ok {
		return "", domain.ErrUnsupported
	}
	if name != "stop" && !h.sessions.IsActive(chatID) {
		return "", domain.ErrNothingPlaying
	}
	if err := c.op(h, ctx, chatID); err != nil {
		return "", err
	}
	return c.done, nil
}

func (h *Handler) handleControlCommand(ctx context.Context, b *bot.Bot, update *models.Update, name string) {
	msg := update.Message
	if msg == nil || !h.guard(ctx, b, msg) {
		return
	}
	text, err := h.runControl(ctx, msg.Chat.ID, name)
	if err != nil {
		h.replyError(ctx, b, msg, name, err)
		return
	}
	// a skip announces the next track itself
	if name == "skip" && h.sessions.IsActive(msg.Chat.ID) {
		return
	}
	h.reply(ctx, b, msg, text)
}

func (h *Handler) handleSkip(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleControlCommand(ctx, b, update, "skip")
}

func (h *Handler) handlePause(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleControlCommand(ctx, b, update, "pause")
}

func (h *Handler) handleResume(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleControlCommand(ctx, b, update, "resume")
}

func (h *Handler) handleMute(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleControlCommand(ctx, b, update, "mute")
}

func (h *Handler) handleUnmute(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleControlCommand(ctx, b, update, "unmute")
}

func (h *Handler) handleEnd(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleControlCommand(ctx, b, update, "stop")
}

// handleControl serves the buttons under the now-playing card.
func (h *Handler) handleControl(ctx context.Context, b *bot.Bot, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}
	answer := func(text string) {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: cq.ID,
			Text:            text,
		})
	}

	msg := cq.Message.Message
	if msg == nil {
		answer("")
		return
	}
	chatID := msg.Chat.ID
	if !h.canControl(ctx, chatID, nil) {
		answer("🔒 Only chat admins can do that.")
		return
	}

	var name string
	switch cq.Data {
	case tg.CallbackPause:
		name = "pause"
	case tg.CallbackResume:
		name = "resume"
	case tg.CallbackSkip:
		name = "skip"
	case tg.CallbackStop:
		name = "stop"
	default:
		answer("")
		return
	}

	text, err := h.runControl(ctx, chatID, name)
	if err != nil {
		if !errors.Is(err, domain.ErrNothingPlaying) {
			slog.Warn("control button", "chat_id", chatID, "action", name, "error", err)
		}
		answer(domain.UserMessage(err))
		return
	}
	answer(text)

	if name == "stop" {
		// the card no longer controls anything
		_, err := b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
			ChatID:    chatID,
			MessageID: msg.ID,
		})
		if err != nil {
			slog.Debug("drop control keyboard", "chat_id", chatID, "error", err)
		}
	}
}
