package service

import "sync"

type roomLock struct {
	mu   sync.Mutex
	refs int
}

// RoomLocks serializes queue mutations per room. Entries are dropped once no
// goroutine holds or waits on them.
type RoomLocks struct {
	mu    sync.Mutex
	rooms map[int64]*roomLock
}

func NewRoomLocks() *RoomLocks {
	return &RoomLocks{rooms: make(map[int64]*roomLock)}
}

// Lock blocks until the room is free and returns its unlock func.
func (l *RoomLocks) Lock(chatID int64) func() {
	l.mu.Lock()
	rl, ok := l.rooms[chatID]
	if !ok {
		rl = &roomLock{}
		l.rooms[chatID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			rl.mu.Unlock()
			l.mu.Lock()
			rl.refs--
			if rl.refs == 0 {
				delete(l.rooms, chatID)
			}
			l.mu.Unlock()
		})
	}
}

func (l *RoomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rooms)
}
