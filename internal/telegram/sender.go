package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/vcplayer/internal/config"
)

// SendLongMessage sends text in as many parts as needed.
// Falls back to plain text if Markdown parsing fails.
func SendLongMessage(ctx context.Context, b *bot.Bot, chatID int64, text string, replyToID *int, markup models.ReplyMarkup) error {
	parts := SplitMessage(text, config.MaxTelegramMessageLen)

	for i, part := range parts {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      part,
			ParseMode: models.ParseModeMarkdownV1,
		}
		if replyToID != nil {
			params.ReplyParameters = &models.ReplyParameters{
				MessageID:                *replyToID,
				AllowSendingWithoutReply: true,
			}
			replyToID = nil // only reply to first part
		}
		if i == len(parts)-1 && markup != nil {
			params.ReplyMarkup = markup
		}

		_, err := b.SendMessage(ctx, params)
		if err != nil {
			slog.Warn("markdown send failed, falling back to plain text", "chat_id", chatID, "error", err)
			params.ParseMode = ""
			if _, err := b.SendMessage(ctx, params); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}

	return nil
}

// EditMessage replaces the text and keyboard of a message.
func EditMessage(ctx context.Context, b *bot.Bot, chatID int64, messageID int, text string, markup models.ReplyMarkup) error {
	text = Truncate(text, config.MaxTelegramMessageLen)

	params := &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdownV1,
		ReplyMarkup: markup,
	}
	if _, err := b.EditMessageText(ctx, params); err != nil {
		params.ParseMode = ""
		if _, err := b.EditMessageText(ctx, params); err != nil {
			return fmt.Errorf("edit message: %w", err)
		}
	}
	return nil
}

// StartAction repeats a chat action every 4 seconds until the returned cancel function is called.
func StartAction(ctx context.Context, b *bot.Bot, chatID int64, action models.ChatAction) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(4 * time.Second)
		defer ticker.Stop()
		send := func() {
			b.SendChatAction(ctx, &bot.SendChatActionParams{
				ChatID: chatID,
				Action: action,
			})
		}
		send()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				send()
			}
		}
	}()
	return cancel
}
