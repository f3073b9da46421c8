package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/set-night/vcplayer/internal/config"
	"github.com/set-night/vcplayer/internal/domain"
	"github.com/set-night/vcplayer/internal/metrics"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// AutoLeaver makes assistants leave group dialogs that have no session, so
// accounts do not pile up memberships.
type AutoLeaver struct {
	pool         *AssistantPool
	sessions     *SessionCache
	state        *CallState
	maxFloodWait time.Duration
	delay        time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewAutoLeaver(pool *AssistantPool, sessions *SessionCache, state *CallState) *AutoLeaver {
	return &AutoLeaver{
		pool:         pool,
		sessions:     sessions,
		state:        state,
		maxFloodWait: config.MaxFloodWait,
		delay:        config.AutoLeaveDelay,
		sleep:        sleepCtx,
	}
}

// Run fires LeaveAll on schedule until ctx is done, then waits for a running job.
func (l *AutoLeaver) Run(ctx context.Context, schedule string) error {
	c := cron.New(cron.WithParser(cronParser))
	if _, err := c.AddFunc(schedule, func() { l.LeaveAll(ctx) }); err != nil {
		return fmt.Errorf("parse auto leave schedule %q: %w", schedule, err)
	}
	c.Start()
	slog.Info("auto leave scheduled", "schedule", schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// LeaveAll walks every assistant's dialogs and returns how many chats were left.
func (l *AutoLeaver) LeaveAll(ctx context.Context) int {
	left := 0
	for _, a := range l.pool.Assistants() {
		dialogs, err := a.Account.Dialogs(ctx)
		if err != nil {
			slog.Error("list assistant dialogs", "assistant", a.Name, "error", err)
			continue
		}
		for _, chatID := range dialogs {
			if ctx.Err() != nil {
				return left
			}
			if chatID > 0 || l.sessions.IsActive(chatID) {
				continue
			}
			if err := l.leave(ctx, a, chatID); err != nil {
				slog.Warn("auto leave chat", "assistant", a.Name, "chat_id", chatID, "error", err)
				continue
			}
			left++
			metrics.AutoLeaves.Inc()
			if err := l.sleep(ctx, l.delay); err != nil {
				return left
			}
		}
	}
	if left > 0 {
		slog.Info("auto leave finished", "left", left)
	}
	return left
}

func (l *AutoLeaver) leave(ctx context.Context, a *Assistant, chatID int64) error {
	err := a.Account.LeaveChat(ctx, chatID)
	var fw *domain.FloodWaitError
	if errors.As(err, &fw) && fw.Wait() <= l.maxFloodWait {
		if err := l.sleep(ctx, fw.Wait()); err != nil {
			return err
		}
		err = a.Account.LeaveChat(ctx, chatID)
	}
	if err != nil {
		return err
	}
	l.state.SetMembership(chatID, a.ID, domain.MemberStatusLeft)
	return nil
}
