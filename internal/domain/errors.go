package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoAssistants = errors.New("no assistants available")

	ErrAssistantBanned    = errors.New("assistant is banned in this chat")
	ErrInviteExpired      = errors.New("invite link expired")
	ErrJoinRequestPending = errors.New("join request sent")
	ErrAlreadyMember      = errors.New("already a participant")
	ErrFloodWait          = errors.New("flood wait")
	ErrNotParticipant     = errors.New("user is not a participant")

	ErrNotInCall      = errors.New("not in a call")
	ErrNoActiveCall   = errors.New("no active voice chat")
	ErrConnectionLost = errors.New("call connection lost")
	ErrServerError    = errors.New("telegram server error")
	ErrNoAudioSource  = errors.New("no audio source")
	ErrUnsupported    = errors.New("unsupported call operation")

	ErrBadSeekRange   = errors.New("seek position out of range")
	ErrBadVolumeRange = errors.New("volume out of range")
	ErrBadSpeedRange  = errors.New("speed out of range")
	ErrMediaNotFound  = errors.New("media file not found")
	ErrNothingPlaying = errors.New("nothing is playing")
	ErrQueueFull      = errors.New("queue is full")
	ErrTrackNotFound  = errors.New("track not found")
	ErrBadLoopCount   = errors.New("loop count out of range")
	ErrInvalidSource  = errors.New("unsupported media source")
)

// FloodWaitError is a rate limit imposed on an account.
type FloodWaitError struct {
	Seconds int
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("flood wait %ds", e.Seconds)
}

func (e *FloodWaitError) Is(target error) bool {
	return target == ErrFloodWait
}

func (e *FloodWaitError) Wait() time.Duration {
	return time.Duration(e.Seconds) * time.Second
}

// RPCError is an engine error that maps to no known kind.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// JoinError names the assistant account that failed to get into a room.
type JoinError struct {
	Assistant   string
	AssistantID int64
	Username    string
	Err         error
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("assistant %s (%d) join: %v", e.Assistant, e.AssistantID, e.Err)
}

func (e *JoinError) Unwrap() error {
	return e.Err
}

type DownloadError struct {
	Ref string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.Ref, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// IsTransient reports engine failures worth retrying later.
func IsTransient(err error) bool {
	return errors.Is(err, ErrConnectionLost) || errors.Is(err, ErrServerError)
}
