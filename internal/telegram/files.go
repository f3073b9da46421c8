package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
)

// Files resolves Telegram file ids to download links.
type Files struct {
	bot *bot.Bot
}

func NewFiles(b *bot.Bot) *Files {
	return &Files{bot: b}
}

// FileURL returns the download URL for a Telegram file.
func (f *Files) FileURL(ctx context.Context, fileID string) (string, error) {
	file, err := f.bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("get file: %w", err)
	}
	return f.bot.FileDownloadLink(file), nil
}
