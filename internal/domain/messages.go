package domain

import (
	"errors"
	"fmt"
)

// GenericMessage is shown for errors without a dedicated text.
const GenericMessage = "❌ Something went wrong."

// UserMessage renders err as text that can be shown in the chat.
func UserMessage(err error) string {
	var joinErr *JoinError
	if errors.As(err, &joinErr) {
		account := fmt.Sprintf("`%d`", joinErr.AssistantID)
		if joinErr.Username != "" {
			account = fmt.Sprintf("@%s (`%d`)", joinErr.Username, joinErr.AssistantID)
		}
		switch {
		case errors.Is(err, ErrAssistantBanned):
			return fmt.Sprintf("🚫 My assistant %s is banned here. Unban it and try again.", account)
		case errors.Is(err, ErrInviteExpired):
			return fmt.Sprintf("⚠️ The invite link for my assistant %s expired. Try again.", account)
		case errors.Is(err, ErrFloodWait):
			var fw *FloodWaitError
			errors.As(err, &fw)
			return fmt.Sprintf("⏳ My assistant %s is rate limited for %ds. Try again later.", account, fw.Seconds)
		default:
			return fmt.Sprintf("❌ My assistant %s could not join this chat. Make me an admin with invite rights.", account)
		}
	}

	var fw *FloodWaitError
	if errors.As(err, &fw) {
		return fmt.Sprintf("⏳ Rate limited for %ds. Try again later.", fw.Seconds)
	}

	var dlErr *DownloadError
	if errors.As(err, &dlErr) {
		return "❌ Failed to download the track."
	}

	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return fmt.Sprintf("❌ Call error: %s", rpcErr.Message)
	}

	switch {
	case errors.Is(err, ErrNoAssistants):
		return "⚠️ No assistants are configured."
	case errors.Is(err, ErrNoActiveCall):
		return "📞 No active voice chat. Start a voice chat first."
	case errors.Is(err, ErrNotInCall):
		return "⏸ I'm not in a voice chat here."
	case errors.Is(err, ErrConnectionLost):
		return "🔌 Lost the call connection. Try again."
	case errors.Is(err, ErrServerError):
		return "⚠️ Telegram server error. Try again in a moment."
	case errors.Is(err, ErrNoAudioSource):
		return "🎙 No audio source found."
	case errors.Is(err, ErrUnsupported):
		return "⚠️ This operation is not supported."
	case errors.Is(err, ErrBadSeekRange):
		return "⚠️ Invalid seek position."
	case errors.Is(err, ErrBadVolumeRange):
		return "⚠️ Volume must be between 1 and 200."
	case errors.Is(err, ErrBadSpeedRange):
		return "⚠️ Speed must be between 0.5 and 4.0."
	case errors.Is(err, ErrMediaNotFound):
		return "❌ Media file not found."
	case errors.Is(err, ErrNothingPlaying):
		return "⏸ There is no track currently playing."
	case errors.Is(err, ErrQueueFull):
		return "⚠️ The queue is full."
	case errors.Is(err, ErrBadLoopCount):
		return "⚠️ The loop count must be between 0 and 10."
	case errors.Is(err, ErrTrackNotFound):
		return "❌ No such track in the queue."
	case errors.Is(err, ErrInvalidSource):
		return "❌ Unsupported link."
	default:
		return GenericMessage
	}
}
