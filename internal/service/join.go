package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/set-night/vcplayer/internal/config"
	"github.com/set-night/vcplayer/internal/domain"
	"github.com/set-night/vcplayer/internal/metrics"
)

// JoinCoordinator makes sure an assistant is inside a room before it streams there.
type JoinCoordinator struct {
	admin        RoomAdmin
	state        *CallState
	maxFloodWait time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewJoinCoordinator(admin RoomAdmin, state *CallState) *JoinCoordinator {
	return &JoinCoordinator{
		admin:        admin,
		state:        state,
		maxFloodWait: config.MaxFloodWait,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// EnsureMember joins a to chatID unless it is already a member.
func (j *JoinCoordinator) EnsureMember(ctx context.Context, chatID int64, a *Assistant) error {
	status, err := j.status(ctx, chatID, a)
	if err != nil {
		return j.fail(a, fmt.Errorf("get member status: %w", err))
	}
	if status.IsMember() {
		return nil
	}

	if status == domain.MemberStatusBanned {
		if err := j.admin.LiftRestriction(ctx, chatID, a.ID); err != nil {
			slog.Warn("lift assistant ban", "chat_id", chatID, "assistant", a.Name, "error", err)
			return j.fail(a, fmt.Errorf("%w: %v", domain.ErrAssistantBanned, err))
		}
		j.state.SetMembership(chatID, a.ID, domain.MemberStatusLeft)
		slog.Info("assistant unbanned", "chat_id", chatID, "assistant", a.Name)
	}

	return j.join(ctx, chatID, a)
}

func (j *JoinCoordinator) status(ctx context.Context, chatID int64, a *Assistant) (domain.MemberStatus, error) {
	if s, ok := j.state.Membership(chatID, a.ID); ok {
		return s, nil
	}
	s, err := j.admin.MemberStatus(ctx, chatID, a.ID)
	if errors.Is(err, domain.ErrNotParticipant) {
		s, err = domain.MemberStatusLeft, nil
	}
	if err != nil {
		return "", err
	}
	j.state.SetMembership(chatID, a.ID, s)
	return s, nil
}

func (j *JoinCoordinator) inviteLink(ctx context.Context, chatID int64) (string, error) {
	if link, ok := j.state.Invite(chatID); ok {
		return link, nil
	}
	link, err := j.admin.CreateInviteLink(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("create invite link: %w", err)
	}
	link = strings.Replace(link, "https://t.me/+", "https://t.me/joinchat/", 1)
	j.state.SetInvite(chatID, link)
	return link, nil
}

func (j *JoinCoordinator) join(ctx context.Context, chatID int64, a *Assistant) error {
	link, err := j.inviteLink(ctx, chatID)
	if err != nil {
		return j.fail(a, err)
	}

	retried := false
	for {
		err := a.Account.JoinChat(ctx, link)

		var fw *domain.FloodWaitError
		switch {
		case err == nil, errors.Is(err, domain.ErrAlreadyMember):
			return j.joined(chatID, a, "joined")

		case errors.Is(err, domain.ErrJoinRequestPending):
			if err := j.admin.ApproveJoinRequest(ctx, chatID, a.ID); err != nil && !errors.Is(err, domain.ErrAlreadyMember) {
				return j.fail(a, fmt.Errorf("approve join request: %w", err))
			}
			return j.joined(chatID, a, "approved")

		case errors.Is(err, domain.ErrInviteExpired):
			j.state.DropInvite(chatID)
			return j.fail(a, err)

		case errors.As(err, &fw):
			if retried || fw.Wait() > j.maxFloodWait {
				return j.fail(a, err)
			}
			slog.Warn("assistant flood wait on join", "chat_id", chatID, "assistant", a.Name, "seconds", fw.Seconds)
			if err := j.sleep(ctx, fw.Wait()); err != nil {
				return j.fail(a, err)
			}
			retried = true

		default:
			return j.fail(a, err)
		}
	}
}

func (j *JoinCoordinator) joined(chatID int64, a *Assistant, result string) error {
	j.state.SetMembership(chatID, a.ID, domain.MemberStatusMember)
	metrics.Joins.WithLabelValues(result).Inc()
	slog.Info("assistant joined chat", "chat_id", chatID, "assistant", a.Name, "result", result)
	return nil
}

func (j *JoinCoordinator) fail(a *Assistant, err error) error {
	metrics.Joins.WithLabelValues("failed").Inc()
	return &domain.JoinError{
		Assistant:   a.Name,
		AssistantID: a.ID,
		Username:    a.Username,
		Err:         err,
	}
}
