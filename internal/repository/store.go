package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/vcplayer/internal/service"
)

var _ service.Store = (*Store)(nil)

// Store keeps chat assignments and per-bot switches in Postgres.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// GetAssignment returns "" when the chat has no saved assistant.
func (s *Store) GetAssignment(ctx context.Context, chatID int64) (string, error) {
	var name string
	err := s.db.QueryRow(ctx, `SELECT assistant FROM chats WHERE chat_id = $1`, chatID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get assignment: %w", err)
	}
	return name, nil
}

func (s *Store) SetAssignment(ctx context.Context, chatID int64, assistant string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO chats (chat_id, assistant) VALUES ($1, $2)
		ON CONFLICT (chat_id) DO UPDATE SET assistant = EXCLUDED.assistant, updated_at = NOW()`,
		chatID, assistant)
	if err != nil {
		return fmt.Errorf("set assignment: %w", err)
	}
	return nil
}

// GetAutoEnd defaults to true for bots without a row.
func (s *Store) GetAutoEnd(ctx context.Context, botID int64) (bool, error) {
	var on bool
	err := s.db.QueryRow(ctx, `SELECT auto_end FROM bots WHERE bot_id = $1`, botID).Scan(&on)
	if errors.Is(err, pgx.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("get auto end: %w", err)
	}
	return on, nil
}

func (s *Store) SetAutoEnd(ctx context.Context, botID int64, on bool) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO bots (bot_id, auto_end) VALUES ($1, $2)
		ON CONFLICT (bot_id) DO UPDATE SET auto_end = EXCLUDED.auto_end, updated_at = NOW()`,
		botID, on)
	if err != nil {
		return fmt.Errorf("set auto end: %w", err)
	}
	return nil
}

// GetLoggerStatus defaults to false for bots without a row.
func (s *Store) GetLoggerStatus(ctx context.Context, botID int64) (bool, error) {
	var on bool
	err := s.db.QueryRow(ctx, `SELECT logger FROM bots WHERE bot_id = $1`, botID).Scan(&on)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get logger status: %w", err)
	}
	return on, nil
}

func (s *Store) SetLoggerStatus(ctx context.Context, botID int64, on bool) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO bots (bot_id, logger) VALUES ($1, $2)
		ON CONFLICT (bot_id) DO UPDATE SET logger = EXCLUDED.logger, updated_at = NOW()`,
		botID, on)
	if err != nil {
		return fmt.Errorf("set logger status: %w", err)
	}
	return nil
}
