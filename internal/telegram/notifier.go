package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/vcplayer/internal/domain"
	"github.com/set-night/vcplayer/internal/service"
)

var _ service.Notifier = (*Notifier)(nil)

// Notifier posts what the player did on its own into the room.
type Notifier struct {
	bot    *bot.Bot
	logger *TelegramLogger
}

func NewNotifier(b *bot.Bot, logger *TelegramLogger) *Notifier {
	return &Notifier{bot: b, logger: logger}
}

// NowPlayingText renders the now-playing card.
func NowPlayingText(track *domain.Track) string {
	kind := "🎵"
	if track.IsVideo {
		kind = "🎬"
	}
	text := fmt.Sprintf("%s *Now playing:* %s\n⏱ *Duration:* %s",
		kind, EscapeMarkdown(track.Title), domain.FormatDuration(track.Duration))
	if track.User != "" {
		text += "\n👤 *Requested by:* " + EscapeMarkdown(track.User)
	}
	if track.Loop > 0 {
		text += fmt.Sprintf("\n🔁 *Loops left:* %d", track.Loop)
	}
	return text
}

func (n *Notifier) NowPlaying(ctx context.Context, chatID int64, track *domain.Track) {
	n.send(ctx, chatID, NowPlayingText(track), ControlKeyboard())
}

func (n *Notifier) QueueFinished(ctx context.Context, chatID int64) {
	n.send(ctx, chatID, "✅ Queue finished. Leaving the voice chat.", nil)
}

func (n *Notifier) DownloadFailed(ctx context.Context, chatID int64, track *domain.Track, err error) {
	n.send(ctx, chatID, fmt.Sprintf("❌ Failed to download *%s*, skipping it.", EscapeMarkdown(track.Title)), nil)
	if n.logger != nil {
		n.logger.LogError(err, fmt.Sprintf("download in chat %d", chatID))
	}
}

func (n *Notifier) PlaybackFailed(ctx context.Context, chatID int64, track *domain.Track, err error) {
	n.send(ctx, chatID, fmt.Sprintf("%s\n\n*Track:* %s", domain.UserMessage(err), EscapeMarkdown(track.Title)), nil)
	if n.logger != nil {
		n.logger.LogError(err, fmt.Sprintf("playback in chat %d", chatID))
	}
}

func (n *Notifier) NoListeners(ctx context.Context, chatID int64) {
	n.send(ctx, chatID, "👋 Nobody is listening. Ending the voice chat stream.", nil)
}

func (n *Notifier) send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	if err := SendLongMessage(ctx, n.bot, chatID, text, nil, markup); err != nil {
		slog.Warn("notify chat", "chat_id", chatID, "error", err)
	}
}
