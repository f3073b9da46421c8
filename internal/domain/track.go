package domain

import (
	"fmt"
	"time"
)

// Platform tags where a track came from.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformDirect   Platform = "direct"
)

type Track struct {
	ID        string
	URL       string
	Title     string
	User      string
	FilePath  string
	Thumbnail string
	Duration  int
	Loop      int
	IsVideo   bool
	Platform  Platform
}

// ChatSession is the per-room playback state. Queue[0] is the track on air.
type ChatSession struct {
	ChatID    int64
	Active    bool
	Queue     []*Track
	Assistant string
	StreamID  string

	// RetiredAt is when the last stream was replaced by a skip or restart.
	RetiredAt time.Time
	// RetiredEnds counts end events still expected from replaced streams.
	RetiredEnds int
}

// FormatDuration renders seconds as m:ss or h:mm:ss.
func FormatDuration(sec int) string {
	if sec < 0 {
		sec = 0
	}
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
