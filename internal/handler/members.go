package handler

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/vcplayer/internal/domain"
)

// memberUserID returns the user a chat member record is about.
func memberUserID(m models.ChatMember) int64 {
	switch {
	case m.Owner != nil:
		return m.Owner.User.ID
	case m.Administrator != nil:
		return m.Administrator.User.ID
	case m.Member != nil:
		return m.Member.User.ID
	case m.Restricted != nil:
		return m.Restricted.User.ID
	case m.Left != nil:
		return m.Left.User.ID
	case m.Banned != nil:
		return m.Banned.User.ID
	}
	return 0
}

// memberStatus maps a member record to the status the join protocol uses.
// Restricted users that are still in the chat count as members.
func memberStatus(m models.ChatMember) domain.MemberStatus {
	if m.Restricted != nil && m.Restricted.IsMember {
		return domain.MemberStatusMember
	}
	return domain.MemberStatus(m.Type)
}

// handleChatMember keeps the membership cache of assistants in step with the chat.
func (h *Handler) handleChatMember(ctx context.Context, b *bot.Bot, update *models.Update) {
	cm := update.ChatMember
	if cm == nil {
		return
	}
	userID := memberUserID(cm.NewChatMember)
	if userID == 0 {
		return
	}

	for _, a := range h.pool.Assistants() {
		if a.ID != userID {
			continue
		}
		status := memberStatus(cm.NewChatMember)
		h.state.SetMembership(cm.Chat.ID, userID, status)
		slog.Info("assistant membership changed", "chat_id", cm.Chat.ID, "assistant", a.Name, "status", status)
		return
	}
}
