package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/set-night/vcplayer/internal/domain"
)

// apiError is the error body the sidecar returns with a non-2xx status.
type apiError struct {
	Code    string `json:"code"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

var codeErrors = map[string]error{
	"NO_ACTIVE_GROUP_CALL":     domain.ErrNoActiveCall,
	"GROUPCALL_INVALID":        domain.ErrNoActiveCall,
	"CONNECTION_NOT_FOUND":     domain.ErrConnectionLost,
	"CONNECTION_ERROR":         domain.ErrConnectionLost,
	"TELEGRAM_SERVER_ERROR":    domain.ErrServerError,
	"NO_AUDIO_SOURCE":          domain.ErrNoAudioSource,
	"NOT_IN_CALL":              domain.ErrNotInCall,
	"UNSUPPORTED_METHOD":       domain.ErrUnsupported,
	"FILE_NOT_FOUND":           domain.ErrMediaNotFound,
	"INVITE_REQUEST_SENT":      domain.ErrJoinRequestPending,
	"USER_ALREADY_PARTICIPANT": domain.ErrAlreadyMember,
	"INVITE_HASH_EXPIRED":      domain.ErrInviteExpired,
	"INVITE_HASH_INVALID":      domain.ErrInviteExpired,
	"USER_BANNED_IN_CHANNEL":   domain.ErrAssistantBanned,
	"CHANNEL_PRIVATE":          domain.ErrAssistantBanned,
}

// toDomainError maps a sidecar error onto the domain error kinds.
func toDomainError(e apiError) error {
	if e.Code == "" {
		return &domain.RPCError{Code: e.Status, Message: e.Message}
	}
	if err, ok := codeErrors[e.Code]; ok {
		if e.Message == "" {
			return err
		}
		return fmt.Errorf("%w: %s", err, e.Message)
	}
	if secs, ok := strings.CutPrefix(e.Code, "FLOOD_WAIT_"); ok {
		if n, err := strconv.Atoi(secs); err == nil {
			return &domain.FloodWaitError{Seconds: n}
		}
	}
	msg := e.Code
	if e.Message != "" {
		msg = e.Code + ": " + e.Message
	}
	return &domain.RPCError{Code: e.Status, Message: msg}
}
