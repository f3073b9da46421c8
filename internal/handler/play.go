package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/set-night/vcplayer/internal/domain"
	"github.com/set-night/vcplayer/internal/downloader"
	"github.com/set-night/vcplayer/internal/middleware"
	tg "github.com/set-night/vcplayer/internal/telegram"
)

const playUsage = "🎵 Usage: `/play <link>` or reply to an audio, video or voice message."

func (h *Handler) handlePlay(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID
	isVideo := commandName(msg.Text) == "vplay"

	track, ok := trackFromReply(msg.ReplyToMessage)
	if !ok {
		args := commandArgs(msg.Text)
		if len(args) == 0 {
			h.reply(ctx, b, msg, playUsage)
			return
		}
		ref := args[0]
		if !h.downloader.IsValid(ref) {
			h.reply(ctx, b, msg, domain.UserMessage(domain.ErrInvalidSource))
			return
		}

		stopAction := tg.StartAction(ctx, b, chatID, models.ChatActionTyping)
		var err error
		track, err = h.downloader.GetTrack(ctx, ref)
		stopAction()
		if err != nil {
			h.replyError(ctx, b, msg, "get track", err)
			return
		}
	}

	track.IsVideo = isVideo
	if caller := middleware.GetCaller(ctx); caller != nil {
		track.User = caller.Name
	}

	action := models.ChatActionUploadVoice
	if isVideo {
		action = models.ChatActionUploadVideo
	}
	stopAction := tg.StartAction(ctx, b, chatID, action)
	pos, err := h.router.Enqueue(ctx, chatID, track)
	stopAction()
	if err != nil {
		h.replyError(ctx, b, msg, "enqueue track", err)
		return
	}

	// position 0 is announced by the now-playing card
	if pos > 0 {
		h.reply(ctx, b, msg, fmt.Sprintf("➕ Added to queue at #%d: *%s* (%s)",
			pos, tg.EscapeMarkdown(track.Title), domain.FormatDuration(track.Duration)))
	}
}

// trackFromReply builds a track from the media of a replied-to message.
func trackFromReply(msg *models.Message) (*domain.Track, bool) {
	if msg == nil {
		return nil, false
	}

	track := &domain.Track{ID: uuid.NewString(), Platform: domain.PlatformTelegram}
	switch {
	case msg.Audio != nil:
		track.URL = downloader.TelegramPrefix + msg.Audio.FileID
		track.Duration = msg.Audio.Duration
		track.Title = msg.Audio.Title
		if msg.Audio.Performer != "" && track.Title != "" {
			track.Title = msg.Audio.Performer + " - " + track.Title
		}
		if track.Title == "" {
			track.Title = strings.TrimSpace(msg.Audio.FileName)
		}
	case msg.Voice != nil:
		track.URL = downloader.TelegramPrefix + msg.Voice.FileID
		track.Duration = msg.Voice.Duration
		track.Title = "Voice message"
	case msg.Video != nil:
		track.URL = downloader.TelegramPrefix + msg.Video.FileID
		track.Duration = msg.Video.Duration
		track.Title = strings.TrimSpace(msg.Video.FileName)
	case msg.VideoNote != nil:
		track.URL = downloader.TelegramPrefix + msg.VideoNote.FileID
		track.Duration = msg.VideoNote.Duration
		track.Title = "Video note"
	case msg.Document != nil && isMediaMime(msg.Document.MimeType):
		track.URL = downloader.TelegramPrefix + msg.Document.FileID
		track.Title = strings.TrimSpace(msg.Document.FileName)
	default:
		return nil, false
	}

	if track.Title == "" {
		track.Title = "Telegram file"
	}
	return track, true
}

func isMediaMime(mime string) bool {
	return strings.HasPrefix(mime, "audio/") || strings.HasPrefix(mime, "video/")
}
