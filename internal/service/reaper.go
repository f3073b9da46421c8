package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/set-night/vcplayer/internal/config"
	"github.com/set-night/vcplayer/internal/metrics"
)

// Reaper ends sessions nobody is listening to.
type Reaper struct {
	sessions  *SessionCache
	player    *Player
	router    *Router
	store     Store
	notifier  Notifier
	botID     int64
	interval  time.Duration
	minPlayed time.Duration
	roomDelay time.Duration
}

type ReaperDeps struct {
	Sessions *SessionCache
	Player   *Player
	Router   *Router
	Store    Store
	Notifier Notifier
	BotID    int64
	Interval time.Duration
}

func NewReaper(deps ReaperDeps) *Reaper {
	return &Reaper{
		sessions:  deps.Sessions,
		player:    deps.Player,
		router:    deps.Router,
		store:     deps.Store,
		notifier:  deps.Notifier,
		botID:     deps.BotID,
		interval:  deps.Interval,
		minPlayed: config.ReaperMinPlayed,
		roomDelay: config.ReaperRoomDelay,
	}
}

// Run sweeps every interval until ctx is done. A sweep in progress finishes
// its current room before Run returns.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Sweep(ctx); n > 0 {
				slog.Info("reaper ended idle sessions", "count", n)
			}
		}
	}
}

// Sweep checks every active room once and returns how many sessions it ended.
func (r *Reaper) Sweep(ctx context.Context) int {
	enabled, err := r.store.GetAutoEnd(ctx, r.botID)
	if err != nil {
		slog.Error("get auto end", "error", err)
		return 0
	}
	if !enabled {
		return 0
	}

	ended := 0
	for i, chatID := range r.sessions.ActiveChats() {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && r.roomDelay > 0 {
			if err := sleepCtx(ctx, r.roomDelay); err != nil {
				break
			}
		}
		if r.reap(ctx, chatID) {
			ended++
		}
	}
	return ended
}

func (r *Reaper) reap(ctx context.Context, chatID int64) bool {
	participants, err := r.player.Participants(ctx, chatID)
	if err != nil {
		slog.Debug("reaper participants", "chat_id", chatID, "error", err)
		return false
	}
	// the assistant itself is always one of them
	if len(participants) > 1 {
		return false
	}

	played, err := r.player.PlayedTime(ctx, chatID)
	if err != nil {
		slog.Debug("reaper played time", "chat_id", chatID, "error", err)
		return false
	}
	if played < r.minPlayed {
		return false
	}

	r.notifier.NoListeners(ctx, chatID)
	if err := r.router.Stop(ctx, chatID); err != nil {
		slog.Warn("reaper end session", "chat_id", chatID, "error", err)
	}
	metrics.ReaperEnds.Inc()
	return true
}
