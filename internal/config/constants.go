package config

import "time"

const (
	// Cache lifetimes
	AssignmentCacheTTL = 20 * time.Minute
	MembershipCacheTTL = 2 * time.Hour
	InviteCacheTTL     = 2 * time.Hour
	RoomKindCacheTTL   = 2 * time.Hour
	CacheCleanup       = 10 * time.Minute

	// Longest flood wait an assistant sleeps through before retrying
	MaxFloodWait = 100 * time.Second

	// Room id used by health checks; never persisted
	HealthCheckRoom int64 = 1

	// Inactivity reaper
	ReaperMinPlayed = 15 * time.Second
	ReaperRoomDelay = 100 * time.Millisecond

	// An end event without a stream id this soon after a skip or restart
	// belongs to the replaced stream
	RetiredStreamWindow = 5 * time.Second

	// Auto leave pause between dialogs
	AutoLeaveDelay = 500 * time.Millisecond

	// Playback ranges
	MinVolume = 1
	MaxVolume = 200
	MinSpeed  = 0.5
	MaxSpeed  = 4.0
	MaxLoop   = 10
	MinSeek   = 20

	// Engine sidecar
	EngineRequestTimeout = 30 * time.Second
	EngineReconnectDelay = 5 * time.Second
	EngineEventBuffer    = 64

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// Telegram log timeout
	LogSendTimeout = 10 * time.Second

	// Settings lookups made outside a request
	SettingsLookupTimeout = 5 * time.Second

	// Queue page in /queue
	QueuePageSize = 10

	// Update workers; /play blocks its worker while downloading
	BotWorkers = 8
)
