package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/set-night/vcplayer/internal/domain"
	"github.com/set-night/vcplayer/internal/service"
)

var _ service.RoomAdmin = (*RoomAdmin)(nil)

// RoomAdmin manages rooms through the bot account.
type RoomAdmin struct {
	bot *bot.Bot
}

func NewRoomAdmin(b *bot.Bot) *RoomAdmin {
	return &RoomAdmin{bot: b}
}

// CreateInviteLink returns the public link of rooms with a username and a
// fresh invite link otherwise.
func (a *RoomAdmin) CreateInviteLink(ctx context.Context, chatID int64) (string, error) {
	chat, err := a.bot.GetChat(ctx, &bot.GetChatParams{ChatID: chatID})
	if err == nil && chat.Username != "" {
		return "https://t.me/" + chat.Username, nil
	}

	link, err := a.bot.CreateChatInviteLink(ctx, &bot.CreateChatInviteLinkParams{ChatID: chatID})
	if err != nil {
		return "", fmt.Errorf("create invite link: %w", mapError(err))
	}
	return link.InviteLink, nil
}

func (a *RoomAdmin) ApproveJoinRequest(ctx context.Context, chatID, userID int64) error {
	_, err := a.bot.ApproveChatJoinRequest(ctx, &bot.ApproveChatJoinRequestParams{
		ChatID: chatID,
		UserID: userID,
	})
	if err != nil {
		return fmt.Errorf("approve join request: %w", mapError(err))
	}
	return nil
}

func (a *RoomAdmin) MemberStatus(ctx context.Context, chatID, userID int64) (domain.MemberStatus, error) {
	member, err := a.bot.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: chatID,
		UserID: userID,
	})
	if err != nil {
		return "", fmt.Errorf("get chat member: %w", mapError(err))
	}
	return domain.MemberStatus(member.Type), nil
}

func (a *RoomAdmin) LiftRestriction(ctx context.Context, chatID, userID int64) error {
	_, err := a.bot.UnbanChatMember(ctx, &bot.UnbanChatMemberParams{
		ChatID:       chatID,
		UserID:       userID,
		OnlyIfBanned: true,
	})
	if err != nil {
		return fmt.Errorf("unban chat member: %w", mapError(err))
	}
	return nil
}

func (a *RoomAdmin) MemberCount(ctx context.Context, chatID int64) (int, error) {
	n, err := a.bot.GetChatMemberCount(ctx, &bot.GetChatMemberCountParams{ChatID: chatID})
	if err != nil {
		return 0, fmt.Errorf("get member count: %w", mapError(err))
	}
	return n, nil
}

func (a *RoomAdmin) RoomKind(ctx context.Context, chatID int64) (domain.RoomKind, error) {
	chat, err := a.bot.GetChat(ctx, &bot.GetChatParams{ChatID: chatID})
	if err != nil {
		return "", fmt.Errorf("get chat: %w", mapError(err))
	}
	return domain.RoomKind(chat.Type), nil
}

// mapError turns Bot API failures the join protocol reacts to into domain errors.
func mapError(err error) error {
	var tooMany *bot.TooManyRequestsError
	if errors.As(err, &tooMany) {
		return &domain.FloodWaitError{Seconds: tooMany.RetryAfter}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user not found"), strings.Contains(msg, "participant_id_invalid"):
		return fmt.Errorf("%w: %v", domain.ErrNotParticipant, err)
	case strings.Contains(msg, "hide_requester_missing"), strings.Contains(msg, "user_already_participant"):
		return fmt.Errorf("%w: %v", domain.ErrAlreadyMember, err)
	}
	return err
}
