package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/vcplayer/internal/middleware"
)

// parseSwitch reads "on"/"off" style arguments.
func parseSwitch(args []string) (on, ok bool) {
	if len(args) == 0 {
		return false, false
	}
	switch strings.ToLower(args[0]) {
	case "on", "enable", "true", "1":
		return true, true
	case "off", "disable", "false", "0":
		return false, true
	}
	return false, false
}

func onOff(on bool) string {
	if on {
		return "✅ on"
	}
	return "❌ off"
}

type botSwitch struct {
	title string
	get   func(ctx context.Context, botID int64) (bool, error)
	set   func(ctx context.Context, botID int64, on bool) error
}

func (h *Handler) handleSwitch(ctx context.Context, b *bot.Bot, update *models.Update, sw botSwitch) {
	msg := update.Message
	if msg == nil {
		return
	}
	caller := middleware.GetCaller(ctx)
	if caller == nil || !caller.IsAdmin {
		h.reply(ctx, b, msg, "🔒 Only bot admins can change this.")
		return
	}

	on, ok := parseSwitch(commandArgs(msg.Text))
	if !ok {
		current, err := sw.get(ctx, h.botID)
		if err != nil {
			h.replyError(ctx, b, msg, "get "+sw.title, err)
			return
		}
		h.reply(ctx, b, msg, fmt.Sprintf("⚙️ %s is %s. Use `on` or `off` to change it.", sw.title, onOff(current)))
		return
	}

	if err := sw.set(ctx, h.botID, on); err != nil {
		h.replyError(ctx, b, msg, "set "+sw.title, err)
		return
	}
	h.reply(ctx, b, msg, fmt.Sprintf("⚙️ %s is now %s.", sw.title, onOff(on)))
}

func (h *Handler) handleAutoEnd(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleSwitch(ctx, b, update, botSwitch{
		title: "Auto end",
		get:   h.settings.GetAutoEnd,
		set:   h.settings.SetAutoEnd,
	})
}

func (h *Handler) handleLogger(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleSwitch(ctx, b, update, botSwitch{
		title: "Playback logger",
		get:   h.settings.GetLoggerStatus,
		set:   h.settings.SetLoggerStatus,
	})
}
