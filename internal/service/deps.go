package service

import (
	"context"

	"github.com/set-night/vcplayer/internal/domain"
)

// CallEngine drives voice chat streams for one assistant account.
type CallEngine interface {
	Play(ctx context.Context, chatID int64, stream domain.StreamDescriptor, cfg domain.CallConfig) error
	Leave(ctx context.Context, chatID int64) error
	Pause(ctx context.Context, chatID int64) error
	Resume(ctx context.Context, chatID int64) error
	Mute(ctx context.Context, chatID int64) error
	Unmute(ctx context.Context, chatID int64) error
	ChangeVolume(ctx context.Context, chatID int64, volume int) error
	// Time returns seconds played of the current stream.
	Time(ctx context.Context, chatID int64) (int, error)
	Participants(ctx context.Context, chatID int64) ([]domain.Participant, error)
	Ping(ctx context.Context) (float64, error)
	CPUUsage(ctx context.Context) (float64, error)
	Events() <-chan domain.Event
}

// AccountInfo identifies the user account behind an assistant.
type AccountInfo struct {
	ID       int64
	Username string
}

// Account is the user account an assistant joins rooms with.
type Account interface {
	Me(ctx context.Context) (AccountInfo, error)
	JoinChat(ctx context.Context, inviteLink string) error
	LeaveChat(ctx context.Context, chatID int64) error
	Dialogs(ctx context.Context) ([]int64, error)
}

// RoomAdmin is the bot side of room management.
type RoomAdmin interface {
	CreateInviteLink(ctx context.Context, chatID int64) (string, error)
	ApproveJoinRequest(ctx context.Context, chatID, userID int64) error
	MemberStatus(ctx context.Context, chatID, userID int64) (domain.MemberStatus, error)
	LiftRestriction(ctx context.Context, chatID, userID int64) error
	MemberCount(ctx context.Context, chatID int64) (int, error)
	RoomKind(ctx context.Context, chatID int64) (domain.RoomKind, error)
}

type Downloader interface {
	IsValid(ref string) bool
	GetTrack(ctx context.Context, ref string) (*domain.Track, error)
	DownloadTrack(ctx context.Context, track *domain.Track, isVideo bool) (string, error)
}

// Store persists assignments and bot-wide switches.
type Store interface {
	GetAssignment(ctx context.Context, chatID int64) (string, error)
	SetAssignment(ctx context.Context, chatID int64, assistant string) error
	GetAutoEnd(ctx context.Context, botID int64) (bool, error)
	GetLoggerStatus(ctx context.Context, botID int64) (bool, error)
}

// Notifier tells a room what the player did on its own.
type Notifier interface {
	NowPlaying(ctx context.Context, chatID int64, track *domain.Track)
	QueueFinished(ctx context.Context, chatID int64)
	DownloadFailed(ctx context.Context, chatID int64, track *domain.Track, err error)
	PlaybackFailed(ctx context.Context, chatID int64, track *domain.Track, err error)
	NoListeners(ctx context.Context, chatID int64)
}

type PlaybackLogger interface {
	LogPlayback(chatID int64, track *domain.Track)
}

// Assistant is one user account plus the call engine that streams through it.
type Assistant struct {
	Name     string
	ID       int64
	Username string
	Account  Account
	Calls    CallEngine
}
