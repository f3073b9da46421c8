package middleware

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/vcplayer/internal/metrics"
)

type window struct {
	start time.Time
	count int
}

// limiter counts commands per user in fixed windows.
type limiter struct {
	mu      sync.Mutex
	limit   int
	period  time.Duration
	windows map[int64]*window
	now     func() time.Time
}

func newLimiter(limit int, period time.Duration) *limiter {
	return &limiter{
		limit:   limit,
		period:  period,
		windows: make(map[int64]*window),
		now:     time.Now,
	}
}

func (l *limiter) allow(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[userID]
	if !ok || now.Sub(w.start) >= l.period {
		w = &window{start: now}
		l.windows[userID] = w
	}
	w.count++

	// drop stale windows so the map stays small
	if len(l.windows) > 1024 {
		for id, other := range l.windows {
			if now.Sub(other.start) >= l.period {
				delete(l.windows, id)
			}
		}
	}
	return w.count <= l.limit
}

// RateLimit returns middleware that enforces a per-user command limit per minute.
// A non-positive limit disables it.
func RateLimit(perMinute int) bot.Middleware {
	l := newLimiter(perMinute, time.Minute)
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			// Only commands count; callbacks and member updates pass through.
			if perMinute <= 0 || update.Message == nil || update.Message.From == nil ||
				!strings.HasPrefix(update.Message.Text, "/") {
				next(ctx, b, update)
				return
			}

			userID := update.Message.From.ID
			if !l.allow(userID) {
				metrics.RateLimited.Inc()
				slog.Debug("rate limited", "chat_id", update.Message.Chat.ID, "user_id", userID, "limit", perMinute)
				return
			}

			next(ctx, b, update)
		}
	}
}
