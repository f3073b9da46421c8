package domain

import "time"

type AudioQuality string

const (
	AudioQualityStudio AudioQuality = "studio"
	AudioQualityHigh   AudioQuality = "high"
)

type VideoQuality string

const (
	VideoQualitySD360 VideoQuality = "sd_360p"
	VideoQualityFHD   VideoQuality = "fhd_1080p"
)

type StreamFlag string

const (
	StreamFlagAutoDetect StreamFlag = "auto_detect"
	StreamFlagIgnore     StreamFlag = "ignore"
)

// StreamDescriptor is what the call engine needs to start a stream.
type StreamDescriptor struct {
	ID           string       `json:"id"`
	Media        string       `json:"media"`
	AudioQuality AudioQuality `json:"audio_quality"`
	VideoQuality VideoQuality `json:"video_quality"`
	AudioFlags   StreamFlag   `json:"audio_flags"`
	VideoFlags   StreamFlag   `json:"video_flags"`
	FilterParams string       `json:"ffmpeg_parameters,omitempty"`
}

// NewStreamDescriptor picks quality tiers from the video flag.
func NewStreamDescriptor(id, media string, isVideo bool, filterParams string) StreamDescriptor {
	d := StreamDescriptor{
		ID:           id,
		Media:        media,
		AudioQuality: AudioQualityStudio,
		VideoQuality: VideoQualitySD360,
		AudioFlags:   StreamFlagAutoDetect,
		VideoFlags:   StreamFlagIgnore,
		FilterParams: filterParams,
	}
	if isVideo {
		d.AudioQuality = AudioQualityHigh
		d.VideoQuality = VideoQualityFHD
		d.VideoFlags = StreamFlagAutoDetect
	}
	return d
}

type CallKind string

const (
	CallKindGroup     CallKind = "group"
	CallKindBroadcast CallKind = "broadcast"
	CallKindPrivate   CallKind = "private"
)

type CallConfig struct {
	Kind      CallKind      `json:"kind"`
	AutoStart bool          `json:"auto_start"`
	Timeout   time.Duration `json:"-"`
}

// CallConfigFor maps a room kind to the engine call configuration.
func CallConfigFor(kind RoomKind) CallConfig {
	switch kind {
	case RoomKindChannel:
		return CallConfig{Kind: CallKindBroadcast}
	case RoomKindPrivate:
		return CallConfig{Kind: CallKindPrivate, Timeout: 50 * time.Second}
	default:
		return CallConfig{Kind: CallKindGroup, AutoStart: false}
	}
}

type Participant struct {
	UserID  int64 `json:"user_id"`
	Muted   bool  `json:"muted"`
	IsVideo bool  `json:"video"`
}

type EventKind string

const (
	EventStreamEnded        EventKind = "stream_ended"
	EventParticipantChanged EventKind = "participant_changed"
	EventCallClosed         EventKind = "closed_voice_chat"
	EventKicked             EventKind = "kicked"
	EventLeft               EventKind = "left"
)

type StreamKind string

const (
	StreamKindAudio StreamKind = "audio"
	StreamKindVideo StreamKind = "video"
)

// Event is a notification pushed by a call engine.
type Event struct {
	Kind     EventKind  `json:"kind"`
	ChatID   int64      `json:"chat_id"`
	StreamID string     `json:"stream_id,omitempty"`
	Stream   StreamKind `json:"stream,omitempty"`
	UserID   int64      `json:"user_id,omitempty"`
	Joined   bool       `json:"joined,omitempty"`
}
