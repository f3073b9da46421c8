package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/vcplayer/internal/config"
	"github.com/set-night/vcplayer/internal/domain"
	"github.com/set-night/vcplayer/internal/metrics"
)

// Router owns the queue side of playback: enqueue, skip, and what happens
// when a stream ends. Every queue mutation runs under the room lock.
type Router struct {
	player          *Player
	sessions        *SessionCache
	locks           *RoomLocks
	pool            *AssistantPool
	state           *CallState
	downloader      Downloader
	notifier        Notifier
	maxQueue        int
	downloadTimeout time.Duration

	inflight sync.WaitGroup
}

type RouterDeps struct {
	Player          *Player
	Sessions        *SessionCache
	Locks           *RoomLocks
	Pool            *AssistantPool
	State           *CallState
	Downloader      Downloader
	Notifier        Notifier
	MaxQueue        int
	DownloadTimeout time.Duration
}

func NewRouter(deps RouterDeps) *Router {
	return &Router{
		player:          deps.Player,
		sessions:        deps.Sessions,
		locks:           deps.Locks,
		pool:            deps.Pool,
		state:           deps.State,
		downloader:      deps.Downloader,
		notifier:        deps.Notifier,
		maxQueue:        deps.MaxQueue,
		downloadTimeout: deps.DownloadTimeout,
	}
}

// Enqueue adds track to the room's queue and starts it when nothing is on
// air. It returns the track's queue position, 0 meaning it is now playing.
func (r *Router) Enqueue(ctx context.Context, chatID int64, track *domain.Track) (int, error) {
	unlock := r.locks.Lock(chatID)
	defer unlock()

	if r.maxQueue > 0 && r.sessions.Len(chatID) >= r.maxQueue {
		return 0, domain.ErrQueueFull
	}
	if track.ID == "" {
		track.ID = uuid.NewString()
	}

	pos := r.sessions.AddTrack(chatID, track)
	if pos > 0 {
		return pos, nil
	}

	cur := r.sessions.Playing(chatID)
	if err := r.start(ctx, chatID, cur); err != nil {
		r.sessions.Clear(chatID, true)
		return 0, err
	}
	return 0, nil
}

// PlayNext advances the room as if its stream had ended.
func (r *Router) PlayNext(ctx context.Context, chatID int64) error {
	unlock := r.locks.Lock(chatID)
	defer unlock()
	return r.advance(ctx, chatID)
}

// Skip skips whatever is on air now.
func (r *Router) Skip(ctx context.Context, chatID int64) error {
	cur := r.sessions.Playing(chatID)
	if cur == nil {
		return domain.ErrNothingPlaying
	}
	_, err := r.SkipTrack(ctx, chatID, cur.ID)
	return err
}

// SkipTrack advances past trackID if it is still on air. It reports false
// when the queue already moved on, so a skip racing a natural end advances once.
func (r *Router) SkipTrack(ctx context.Context, chatID int64, trackID string) (bool, error) {
	unlock := r.locks.Lock(chatID)
	defer unlock()

	cur := r.sessions.Playing(chatID)
	if cur == nil {
		return false, domain.ErrNothingPlaying
	}
	if cur.ID != trackID {
		slog.Debug("skip target already gone", "chat_id", chatID, "track_id", trackID)
		return false, nil
	}
	r.sessions.SetLoopCount(chatID, 0)
	r.sessions.RetireStream(chatID)
	return true, r.advance(ctx, chatID)
}

// Stop ends the room's session and leaves the call.
func (r *Router) Stop(ctx context.Context, chatID int64) error {
	unlock := r.locks.Lock(chatID)
	defer unlock()
	return r.player.End(ctx, chatID)
}

// Remove drops the queued track at index (1 is the next track).
func (r *Router) Remove(chatID int64, index int) (*domain.Track, error) {
	unlock := r.locks.Lock(chatID)
	defer unlock()
	return r.sessions.RemoveAt(chatID, index)
}

// ClearQueue drops every upcoming track and keeps the one on air.
func (r *Router) ClearQueue(chatID int64) int {
	unlock := r.locks.Lock(chatID)
	defer unlock()
	return r.sessions.ClearUpcoming(chatID)
}

func (r *Router) SetLoop(chatID int64, count int) error {
	if count < 0 || count > config.MaxLoop {
		return domain.ErrBadLoopCount
	}
	unlock := r.locks.Lock(chatID)
	defer unlock()
	if !r.sessions.SetLoopCount(chatID, count) {
		return domain.ErrNothingPlaying
	}
	return nil
}

// advance replays a looping track, or pops it and plays the next one that
// can be downloaded. An empty queue ends the session. Caller holds the room lock.
func (r *Router) advance(ctx context.Context, chatID int64) error {
	if cur := r.sessions.Playing(chatID); cur != nil && cur.Loop > 0 {
		r.sessions.SetLoopCount(chatID, cur.Loop-1)
		metrics.StreamEnds.WithLabelValues("loop").Inc()
		return r.playNext(ctx, chatID, cur)
	}

	r.sessions.PopCurrent(chatID, true)
	for {
		next := r.sessions.Playing(chatID)
		if next == nil {
			metrics.StreamEnds.WithLabelValues("finished").Inc()
			if err := r.player.End(ctx, chatID); err != nil {
				slog.Warn("end session", "chat_id", chatID, "error", err)
			}
			r.notifier.QueueFinished(ctx, chatID)
			return nil
		}

		err := r.playNext(ctx, chatID, next)
		var dlErr *domain.DownloadError
		if errors.As(err, &dlErr) {
			r.sessions.PopCurrent(chatID, true)
			continue
		}
		metrics.StreamEnds.WithLabelValues("next").Inc()
		return err
	}
}

func (r *Router) playNext(ctx context.Context, chatID int64, track *domain.Track) error {
	err := r.start(ctx, chatID, track)
	var dlErr *domain.DownloadError
	switch {
	case err == nil:
	case errors.As(err, &dlErr):
		slog.Warn("download track", "chat_id", chatID, "track_id", track.ID, "error", err)
		r.notifier.DownloadFailed(ctx, chatID, track, err)
	default:
		r.notifier.PlaybackFailed(ctx, chatID, track, err)
	}
	return err
}

func (r *Router) start(ctx context.Context, chatID int64, track *domain.Track) error {
	path, err := r.prepare(ctx, chatID, track)
	if err != nil {
		return err
	}
	if err := r.player.Play(ctx, chatID, path, track.IsVideo, ""); err != nil {
		return err
	}
	track.FilePath = path
	r.notifier.NowPlaying(ctx, chatID, track)
	return nil
}

// prepare returns a local file for track, downloading it on first play.
func (r *Router) prepare(ctx context.Context, chatID int64, track *domain.Track) (string, error) {
	if track.FilePath != "" {
		return track.FilePath, nil
	}
	if !r.downloader.IsValid(track.URL) {
		return "", &domain.DownloadError{Ref: track.URL, Err: domain.ErrInvalidSource}
	}

	dctx := ctx
	if r.downloadTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, r.downloadTimeout)
		defer cancel()
	}

	started := time.Now()
	path, err := r.downloader.DownloadTrack(dctx, track, track.IsVideo)
	metrics.DownloadDuration.Observe(time.Since(started).Seconds())
	if err == nil && path == "" {
		err = errors.New("downloader returned no file")
	}
	if err != nil {
		metrics.Downloads.WithLabelValues("failed").Inc()
		return "", &domain.DownloadError{Ref: track.URL, Err: err}
	}
	metrics.Downloads.WithLabelValues("ok").Inc()

	r.sessions.UpdateTrack(chatID, track.ID, func(t *domain.Track) { t.FilePath = path })
	return path, nil
}
