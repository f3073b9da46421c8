package service

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/set-night/vcplayer/internal/domain"
	"github.com/set-night/vcplayer/internal/metrics"
)

// SessionCache keeps the per-room queue. Reads hand out copies so callers never
// share a *Track with the cache.
type SessionCache struct {
	mu       sync.RWMutex
	sessions map[int64]*domain.ChatSession
	remove   func(path string) error
	now      func() time.Time
}

func NewSessionCache() *SessionCache {
	return &SessionCache{
		sessions: make(map[int64]*domain.ChatSession),
		remove:   os.Remove,
		now:      time.Now,
	}
}

func copyTrack(t *domain.Track) *domain.Track {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func (c *SessionCache) session(chatID int64) *domain.ChatSession {
	s, ok := c.sessions[chatID]
	if !ok {
		s = &domain.ChatSession{ChatID: chatID}
		c.sessions[chatID] = s
	}
	return s
}

// AddTrack appends a track, activates the room and returns the track's position.
func (c *SessionCache) AddTrack(chatID int64, track *domain.Track) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session(chatID)
	s.Queue = append(s.Queue, copyTrack(track))
	if !s.Active {
		s.Active = true
		metrics.ActiveSessions.Inc()
	}
	return len(s.Queue) - 1
}

// Playing returns the track at the front of the queue.
func (c *SessionCache) Playing(chatID int64) *domain.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sessions[chatID]
	if !ok || len(s.Queue) == 0 {
		return nil
	}
	return copyTrack(s.Queue[0])
}

// Upcoming returns the track after the one on air.
func (c *SessionCache) Upcoming(chatID int64) *domain.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sessions[chatID]
	if !ok || len(s.Queue) < 2 {
		return nil
	}
	return copyTrack(s.Queue[1])
}

// PopCurrent removes the front track. With diskClear its files are deleted.
func (c *SessionCache) PopCurrent(chatID int64, diskClear bool) *domain.Track {
	c.mu.Lock()
	s, ok := c.sessions[chatID]
	if !ok || len(s.Queue) == 0 {
		c.mu.Unlock()
		return nil
	}
	removed := s.Queue[0]
	s.Queue[0] = nil
	s.Queue = s.Queue[1:]
	c.mu.Unlock()

	if diskClear {
		c.deleteFiles(removed)
	}
	return removed
}

// RemoveAt drops the track at index. Index 0 is the track on air and cannot be removed here.
func (c *SessionCache) RemoveAt(chatID int64, index int) (*domain.Track, error) {
	c.mu.Lock()
	s, ok := c.sessions[chatID]
	if !ok || index < 1 || index >= len(s.Queue) {
		c.mu.Unlock()
		return nil, domain.ErrTrackNotFound
	}
	removed := s.Queue[index]
	s.Queue = append(s.Queue[:index], s.Queue[index+1:]...)
	c.mu.Unlock()

	c.deleteFiles(removed)
	return removed, nil
}

// ClearUpcoming drops everything but the track on air and returns how many were removed.
func (c *SessionCache) ClearUpcoming(chatID int64) int {
	c.mu.Lock()
	s, ok := c.sessions[chatID]
	if !ok || len(s.Queue) < 2 {
		c.mu.Unlock()
		return 0
	}
	removed := s.Queue[1:]
	s.Queue = s.Queue[:1:1]
	c.mu.Unlock()

	for _, t := range removed {
		c.deleteFiles(t)
	}
	return len(removed)
}

func (c *SessionCache) IsActive(chatID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[chatID]
	return ok && s.Active
}

func (c *SessionCache) SetActive(chatID int64, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session(chatID)
	if s.Active == active {
		return
	}
	s.Active = active
	if active {
		metrics.ActiveSessions.Inc()
	} else {
		metrics.ActiveSessions.Dec()
	}
}

// Clear destroys the room's session. With diskClear queued files are deleted.
func (c *SessionCache) Clear(chatID int64, diskClear bool) {
	c.mu.Lock()
	s, ok := c.sessions[chatID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.sessions, chatID)
	if s.Active {
		metrics.ActiveSessions.Dec()
	}
	c.mu.Unlock()

	if diskClear {
		for _, t := range s.Queue {
			c.deleteFiles(t)
		}
	}
}

func (c *SessionCache) Len(chatID int64) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[chatID]
	if !ok {
		return 0
	}
	return len(s.Queue)
}

func (c *SessionCache) LoopCount(chatID int64) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[chatID]
	if !ok || len(s.Queue) == 0 {
		return 0
	}
	return s.Queue[0].Loop
}

// SetLoopCount sets the remaining replays of the track on air.
func (c *SessionCache) SetLoopCount(chatID int64, loop int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[chatID]
	if !ok || len(s.Queue) == 0 {
		return false
	}
	s.Queue[0].Loop = loop
	return true
}

// UpdateTrack applies fn to the queued track with the given id.
func (c *SessionCache) UpdateTrack(chatID int64, trackID string, fn func(*domain.Track)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[chatID]
	if !ok {
		return false
	}
	for _, t := range s.Queue {
		if t.ID == trackID {
			fn(t)
			return true
		}
	}
	return false
}

// Queue returns a copy of the room's queue.
func (c *SessionCache) Queue(chatID int64) []*domain.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[chatID]
	if !ok {
		return nil
	}
	out := make([]*domain.Track, len(s.Queue))
	for i, t := range s.Queue {
		out[i] = copyTrack(t)
	}
	return out
}

// Track returns the queued track with the given id.
func (c *SessionCache) Track(chatID int64, trackID string) *domain.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[chatID]
	if !ok {
		return nil
	}
	for _, t := range s.Queue {
		if t.ID == trackID {
			return copyTrack(t)
		}
	}
	return nil
}

// ActiveChats lists rooms with an active session in ascending id order.
func (c *SessionCache) ActiveChats() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]int64, 0, len(c.sessions))
	for id, s := range c.sessions {
		if s.Active {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MarkStreaming records the assistant and stream now serving the room.
func (c *SessionCache) MarkStreaming(chatID int64, assistant, streamID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[chatID]
	if !ok {
		return
	}
	s.Assistant = assistant
	s.StreamID = streamID
}

// RetireStream notes that the stream on air was replaced before it ended, so
// one end event without a stream id may still arrive for it.
func (c *SessionCache) RetireStream(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[chatID]
	if !ok || s.StreamID == "" {
		return
	}
	s.RetiredAt = c.now()
	s.RetiredEnds++
}

// TakeRetiredEnd reports whether an end event without a stream id belongs to
// a stream replaced within window, consuming that expectation.
func (c *SessionCache) TakeRetiredEnd(chatID int64, window time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[chatID]
	if !ok || s.RetiredEnds == 0 {
		return false
	}
	if c.now().Sub(s.RetiredAt) > window {
		s.RetiredEnds = 0
		return false
	}
	s.RetiredEnds--
	return true
}

func (c *SessionCache) StreamID(chatID int64) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[chatID]
	if !ok {
		return ""
	}
	return s.StreamID
}

// Snapshot returns a copy of the whole session.
func (c *SessionCache) Snapshot(chatID int64) (domain.ChatSession, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[chatID]
	if !ok {
		return domain.ChatSession{}, false
	}
	out := *s
	out.Queue = make([]*domain.Track, len(s.Queue))
	for i, t := range s.Queue {
		out.Queue[i] = copyTrack(t)
	}
	return out, true
}

func (c *SessionCache) deleteFiles(t *domain.Track) {
	if t == nil {
		return
	}
	for _, path := range []string{t.FilePath, t.Thumbnail} {
		if path == "" || strings.Contains(path, "://") {
			continue
		}
		if err := c.remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("remove track file", "path", path, "error", err)
		}
	}
}
