package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/set-night/vcplayer/internal/config"
	"github.com/set-night/vcplayer/internal/domain"
	"github.com/set-night/vcplayer/internal/metrics"
)

// Run consumes every assistant's engine events until ctx is done. Each event
// is handled on its own goroutine; Run returns after those have finished.
func (r *Router) Run(ctx context.Context) error {
	handleCtx := context.WithoutCancel(ctx)

	var dispatchers sync.WaitGroup
	for _, a := range r.pool.Assistants() {
		dispatchers.Add(1)
		go func() {
			defer dispatchers.Done()
			r.dispatch(ctx, handleCtx, a)
		}()
	}
	dispatchers.Wait()
	r.inflight.Wait()
	return nil
}

func (r *Router) dispatch(ctx, handleCtx context.Context, a *Assistant) {
	events := a.Calls.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				slog.Warn("engine event feed closed", "assistant", a.Name)
				return
			}
			r.inflight.Add(1)
			go func() {
				defer r.inflight.Done()
				r.HandleEvent(handleCtx, a, ev)
			}()
		}
	}
}

// HandleEvent routes one engine event to its room.
func (r *Router) HandleEvent(ctx context.Context, a *Assistant, ev domain.Event) {
	switch ev.Kind {
	case domain.EventStreamEnded:
		r.streamEnded(ctx, ev)

	case domain.EventCallClosed:
		unlock := r.locks.Lock(ev.ChatID)
		defer unlock()
		if err := r.player.End(ctx, ev.ChatID); err != nil {
			slog.Warn("end closed call", "chat_id", ev.ChatID, "error", err)
		}
		slog.Info("voice chat closed", "chat_id", ev.ChatID, "assistant", a.Name)

	case domain.EventKicked, domain.EventLeft:
		status := domain.MemberStatusLeft
		if ev.Kind == domain.EventKicked {
			status = domain.MemberStatusBanned
		}
		r.state.SetMembership(ev.ChatID, a.ID, status)

		unlock := r.locks.Lock(ev.ChatID)
		defer unlock()
		r.sessions.Clear(ev.ChatID, true)
		slog.Info("assistant removed from chat", "chat_id", ev.ChatID, "assistant", a.Name, "status", status)

	case domain.EventParticipantChanged:
		slog.Debug("participant changed", "chat_id", ev.ChatID, "user_id", ev.UserID, "joined", ev.Joined)

	default:
		slog.Debug("unknown engine event", "kind", ev.Kind, "chat_id", ev.ChatID)
	}
}

// streamEnded advances the queue unless the event is about a stream that
// was already replaced. Video track ends are ignored; audio drives the queue.
func (r *Router) streamEnded(ctx context.Context, ev domain.Event) {
	if ev.Stream == domain.StreamKindVideo {
		return
	}

	unlock := r.locks.Lock(ev.ChatID)
	defer unlock()

	if !r.sessions.IsActive(ev.ChatID) {
		metrics.StreamEnds.WithLabelValues("inactive").Inc()
		return
	}
	stale := ev.StreamID != r.sessions.StreamID(ev.ChatID)
	if ev.StreamID == "" {
		stale = r.sessions.TakeRetiredEnd(ev.ChatID, config.RetiredStreamWindow)
	}
	if stale {
		metrics.StreamEnds.WithLabelValues("stale").Inc()
		slog.Debug("stale stream end", "chat_id", ev.ChatID, "stream_id", ev.StreamID)
		return
	}

	if err := r.advance(ctx, ev.ChatID); err != nil {
		slog.Error("play next", "chat_id", ev.ChatID, "error", err)
	}
}
