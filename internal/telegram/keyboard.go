package telegram

import (
	"fmt"

	"github.com/go-telegram/bot/models"
)

// Callback data of the playback control buttons.
const (
	CallbackPause  = "ctl_pause"
	CallbackResume = "ctl_resume"
	CallbackSkip   = "ctl_skip"
	CallbackStop   = "ctl_stop"
	CallbackQueue  = "queue"
)

func InlineButton(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

func URLButton(text, url string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text: text,
		URL:  url,
	}
}

func InlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}

func ButtonRow(buttons ...models.InlineKeyboardButton) []models.InlineKeyboardButton {
	return buttons
}

// ControlKeyboard is attached to now-playing messages.
func ControlKeyboard() *models.InlineKeyboardMarkup {
	return InlineKeyboard(
		ButtonRow(
			InlineButton("⏸", CallbackPause),
			InlineButton("▶️", CallbackResume),
			InlineButton("⏭", CallbackSkip),
			InlineButton("⏹", CallbackStop),
		),
	)
}

// PaginationRow creates a pagination row with prev/next buttons.
func PaginationRow(currentPage, totalPages int, callbackPrefix string) []models.InlineKeyboardButton {
	var row []models.InlineKeyboardButton

	if currentPage > 0 {
		row = append(row, InlineButton("⬅️", fmt.Sprintf("%s_%d", callbackPrefix, currentPage-1)))
	}

	row = append(row, InlineButton(fmt.Sprintf("%d/%d", currentPage+1, totalPages), "noop"))

	if currentPage < totalPages-1 {
		row = append(row, InlineButton("➡️", fmt.Sprintf("%s_%d", callbackPrefix, currentPage+1)))
	}

	return row
}
