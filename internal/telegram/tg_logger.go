package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/set-night/vcplayer/internal/config"
	"github.com/set-night/vcplayer/internal/domain"
	"github.com/set-night/vcplayer/internal/service"
)

var _ service.PlaybackLogger = (*TelegramLogger)(nil)

// TelegramLogger mirrors notable events into topics of the log group.
type TelegramLogger struct {
	bot *bot.Bot
	cfg *config.Config
}

func NewTelegramLogger(b *bot.Bot, cfg *config.Config) *TelegramLogger {
	return &TelegramLogger{bot: b, cfg: cfg}
}

type LogType string

const (
	LogTypeError    LogType = "error"
	LogTypePlayback LogType = "playback"
)

func (l *TelegramLogger) Log(logType LogType, message string) {
	if l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.topicID(logType)
	if topicID == 0 {
		return
	}

	if len([]rune(message)) > config.MaxTelegramMessageLen {
		message = string([]rune(message)[:config.MaxTelegramMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.LogSendTimeout)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		ParseMode:       "Markdown",
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

func (l *TelegramLogger) LogError(err error, context string) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		context, err.Error(), time.Now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeError, msg)
}

// LogPlayback records a track that just started.
func (l *TelegramLogger) LogPlayback(chatID int64, track *domain.Track) {
	msg := fmt.Sprintf("🎵 *Playback*\n\n*Chat:* `%d`\n*Title:* %s\n*Duration:* %s\n*Requested by:* %s\n*Source:* %s",
		chatID, EscapeMarkdown(track.Title), domain.FormatDuration(track.Duration),
		EscapeMarkdown(track.User), EscapeMarkdown(track.URL))
	if track.IsVideo {
		msg += "\n*Video:* yes"
	}
	l.Log(LogTypePlayback, msg)
}

func (l *TelegramLogger) topicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.cfg.LogTopicError
	case LogTypePlayback:
		return l.cfg.LogTopicPlayback
	default:
		return 0
	}
}
