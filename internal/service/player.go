package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/vcplayer/internal/config"
	"github.com/set-night/vcplayer/internal/domain"
	"github.com/set-night/vcplayer/internal/metrics"
)

// Player is the playback contract over the assistants' call engines. Seek and
// speed have no engine primitive and restart the stream with new parameters.
type Player struct {
	pool     *AssistantPool
	joiner   *JoinCoordinator
	sessions *SessionCache
	state    *CallState
	locks    *RoomLocks
	admin    RoomAdmin
	store    Store
	logger   PlaybackLogger
	botID    int64
	newID    func() string
}

type PlayerDeps struct {
	Pool     *AssistantPool
	Joiner   *JoinCoordinator
	Sessions *SessionCache
	State    *CallState
	Locks    *RoomLocks
	Admin    RoomAdmin
	Store    Store
	Logger   PlaybackLogger
	BotID    int64
}

func NewPlayer(deps PlayerDeps) *Player {
	return &Player{
		pool:     deps.Pool,
		joiner:   deps.Joiner,
		sessions: deps.Sessions,
		state:    deps.State,
		locks:    deps.Locks,
		admin:    deps.Admin,
		store:    deps.Store,
		logger:   deps.Logger,
		botID:    deps.BotID,
		newID:    uuid.NewString,
	}
}

// Play starts media in chatID's voice chat through the room's assistant.
func (p *Player) Play(ctx context.Context, chatID int64, media string, isVideo bool, filterParams string) error {
	a, err := p.pool.Resolve(ctx, chatID)
	if err != nil {
		p.sessions.Clear(chatID, true)
		return p.playFailed(chatID, err)
	}

	if !isRemote(media) {
		if _, err := os.Stat(media); err != nil {
			return p.playFailed(chatID, fmt.Errorf("%w: %s", domain.ErrMediaNotFound, media))
		}
	}

	kind := p.roomKind(ctx, chatID)
	if kind != domain.RoomKindPrivate {
		if err := p.joiner.EnsureMember(ctx, chatID, a); err != nil {
			p.sessions.Clear(chatID, true)
			return p.playFailed(chatID, err)
		}
	}

	stream := domain.NewStreamDescriptor(p.newID(), media, isVideo, filterParams)
	if err := a.Calls.Play(ctx, chatID, stream, domain.CallConfigFor(kind)); err != nil {
		return p.playFailed(chatID, fmt.Errorf("play in chat %d: %w", chatID, err))
	}

	p.sessions.MarkStreaming(chatID, a.Name, stream.ID)
	metrics.PlaysStarted.Inc()
	slog.Info("stream started",
		"chat_id", chatID,
		"assistant", a.Name,
		"stream_id", stream.ID,
		"video", isVideo,
		"filters", filterParams != "",
	)

	p.logPlayback(chatID)
	return nil
}

func (p *Player) playFailed(chatID int64, err error) error {
	metrics.PlayFailures.WithLabelValues(metrics.ErrorKind(err)).Inc()
	slog.Warn("play media", "chat_id", chatID, "error", err)
	return err
}

// roomKind prefers the real chat type; the id sign is a fallback.
func (p *Player) roomKind(ctx context.Context, chatID int64) domain.RoomKind {
	if kind, ok := p.state.RoomKind(chatID); ok {
		return kind
	}
	kind, err := p.admin.RoomKind(ctx, chatID)
	if err != nil {
		slog.Debug("get room kind", "chat_id", chatID, "error", err)
		return domain.RoomKindFromID(chatID)
	}
	p.state.SetRoomKind(chatID, kind)
	return kind
}

func (p *Player) logPlayback(chatID int64) {
	if p.logger == nil {
		return
	}
	track := p.sessions.Playing(chatID)
	if track == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.SettingsLookupTimeout)
		defer cancel()
		enabled, err := p.store.GetLoggerStatus(ctx, p.botID)
		if err != nil {
			slog.Warn("get logger status", "error", err)
			return
		}
		if enabled {
			p.logger.LogPlayback(chatID, track)
		}
	}()
}

// Reconfigure restarts the track on air with new filter parameters.
func (p *Player) Reconfigure(ctx context.Context, chatID int64, params string) error {
	unlock := p.locks.Lock(chatID)
	defer unlock()
	return p.reconfigure(ctx, chatID, func(*domain.Track, string) (string, error) {
		return params, nil
	})
}

// reconfigure replays the track at the head of the queue with the filter
// params build returns for it. Caller holds the room lock.
func (p *Player) reconfigure(ctx context.Context, chatID int64, build func(cur *domain.Track, media string) (string, error)) error {
	cur := p.sessions.Playing(chatID)
	if cur == nil {
		return domain.ErrNothingPlaying
	}
	media := cur.FilePath
	if media == "" {
		media = cur.URL
	}
	params, err := build(cur, media)
	if err != nil {
		return err
	}
	if err := p.Play(ctx, chatID, media, cur.IsVideo, params); err != nil {
		return err
	}
	p.sessions.RetireStream(chatID)
	return nil
}

// Seek moves the track on air step seconds past the current position and
// returns the new position.
func (p *Player) Seek(ctx context.Context, chatID int64, step int) (int, error) {
	if step < config.MinSeek {
		return 0, domain.ErrBadSeekRange
	}
	unlock := p.locks.Lock(chatID)
	defer unlock()

	var toSeek int
	err := p.reconfigure(ctx, chatID, func(cur *domain.Track, media string) (string, error) {
		played, err := p.playedTime(ctx, chatID)
		if err != nil {
			return "", err
		}
		if !p.sessions.IsActive(chatID) {
			return "", domain.ErrNothingPlaying
		}
		toSeek = int(played.Seconds()) + step
		if cur.Duration <= 0 || toSeek >= cur.Duration {
			return "", domain.ErrBadSeekRange
		}
		return SeekParams(media, !isRemote(media), toSeek, cur.Duration), nil
	})
	if err != nil {
		return 0, err
	}
	return toSeek, nil
}

// ChangeSpeed replays the local file of the track on air at the given speed.
func (p *Player) ChangeSpeed(ctx context.Context, chatID int64, speed float64) error {
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed < config.MinSpeed || speed > config.MaxSpeed {
		return domain.ErrBadSpeedRange
	}
	unlock := p.locks.Lock(chatID)
	defer unlock()

	return p.reconfigure(ctx, chatID, func(cur *domain.Track, _ string) (string, error) {
		if cur.FilePath == "" {
			return "", domain.ErrMediaNotFound
		}
		return SpeedParams(speed), nil
	})
}

func (p *Player) ChangeVolume(ctx context.Context, chatID int64, volume int) error {
	if volume < config.MinVolume || volume > config.MaxVolume {
		return domain.ErrBadVolumeRange
	}
	a, err := p.pool.Resolve(ctx, chatID)
	if err != nil {
		return err
	}
	return a.Calls.ChangeVolume(ctx, chatID, volume)
}

func (p *Player) Pause(ctx context.Context, chatID int64) error {
	return p.call(ctx, chatID, CallEngine.Pause)
}

func (p *Player) Resume(ctx context.Context, chatID int64) error {
	return p.call(ctx, chatID, CallEngine.Resume)
}

func (p *Player) Mute(ctx context.Context, chatID int64) error {
	return p.call(ctx, chatID, CallEngine.Mute)
}

func (p *Player) Unmute(ctx context.Context, chatID int64) error {
	return p.call(ctx, chatID, CallEngine.Unmute)
}

func (p *Player) call(ctx context.Context, chatID int64, op func(CallEngine, context.Context, int64) error) error {
	a, err := p.pool.Resolve(ctx, chatID)
	if err != nil {
		return err
	}
	return op(a.Calls, ctx, chatID)
}

// PlayedTime reports how long the current stream has run. A room whose
// assistant is no longer in a call is cleared and reports zero.
func (p *Player) PlayedTime(ctx context.Context, chatID int64) (time.Duration, error) {
	unlock := p.locks.Lock(chatID)
	defer unlock()
	return p.playedTime(ctx, chatID)
}

// playedTime is PlayedTime for callers holding the room lock.
func (p *Player) playedTime(ctx context.Context, chatID int64) (time.Duration, error) {
	a, err := p.pool.Resolve(ctx, chatID)
	if err != nil {
		return 0, err
	}
	secs, err := a.Calls.Time(ctx, chatID)
	if errors.Is(err, domain.ErrNotInCall) || errors.Is(err, domain.ErrNoActiveCall) {
		p.sessions.Clear(chatID, true)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get played time: %w", err)
	}
	return time.Duration(secs) * time.Second, nil
}

func (p *Player) Participants(ctx context.Context, chatID int64) ([]domain.Participant, error) {
	a, err := p.pool.Resolve(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return a.Calls.Participants(ctx, chatID)
}

// Stats is what /stats shows about the engine serving a room.
type Stats struct {
	Assistant string
	PingMs    float64
	CPU       float64
	Sessions  int
}

func (p *Player) Stats(ctx context.Context, chatID int64) (Stats, error) {
	a, err := p.pool.Resolve(ctx, chatID)
	if err != nil {
		return Stats{}, err
	}
	ping, err := a.Calls.Ping(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("ping engine: %w", err)
	}
	cpu, err := a.Calls.CPUUsage(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("get cpu usage: %w", err)
	}
	return Stats{
		Assistant: a.Name,
		PingMs:    ping,
		CPU:       cpu,
		Sessions:  len(p.sessions.ActiveChats()),
	}, nil
}

// End leaves the call and drops the session. Being out of the call already is not an error.
func (p *Player) End(ctx context.Context, chatID int64) error {
	p.sessions.Clear(chatID, true)
	a, err := p.pool.Resolve(ctx, chatID)
	if err != nil {
		return err
	}
	err = a.Calls.Leave(ctx, chatID)
	if errors.Is(err, domain.ErrNotInCall) || errors.Is(err, domain.ErrNoActiveCall) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("leave call: %w", err)
	}
	slog.Info("call ended", "chat_id", chatID, "assistant", a.Name)
	return nil
}
