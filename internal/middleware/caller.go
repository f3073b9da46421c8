package middleware

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type ctxKey string

const CallerKey ctxKey = "caller"

// Caller is who sent an update and where.
type Caller struct {
	UserID   int64
	Name     string
	ChatID   int64
	ChatType models.ChatType
	IsAdmin  bool
}

// GetCaller extracts the caller from context.
func GetCaller(ctx context.Context) *Caller {
	c, ok := ctx.Value(CallerKey).(*Caller)
	if !ok {
		return nil
	}
	return c
}

// CallerLoader returns middleware that stores the update's caller in context.
func CallerLoader(cfg interface{ IsAdmin(int64) bool }) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			var from *models.User
			var chat *models.Chat

			if update.Message != nil {
				from = update.Message.From
				chat = &update.Message.Chat
			} else if update.CallbackQuery != nil {
				from = &update.CallbackQuery.From
				if update.CallbackQuery.Message.Message != nil {
					chat = &update.CallbackQuery.Message.Message.Chat
				}
			}

			if chat == nil {
				next(ctx, b, update)
				return
			}

			c := &Caller{ChatID: chat.ID, ChatType: chat.Type}
			if from != nil {
				c.UserID = from.ID
				c.Name = displayName(from)
				c.IsAdmin = cfg.IsAdmin(from.ID)
			} else if update.Message != nil && update.Message.SenderChat != nil {
				// anonymous admins and channel posts
				c.Name = update.Message.SenderChat.Title
			}

			next(context.WithValue(ctx, CallerKey, c), b, update)
		}
	}
}

func displayName(u *models.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.Username != "" {
		return "@" + u.Username
	}
	return name
}
