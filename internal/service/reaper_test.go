package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/set-night/vcplayer/internal/domain"
)

func newTestReaper(env *testEnv) *Reaper {
	r := NewReaper(ReaperDeps{
		Sessions: env.sessions,
		Player:   env.player,
		Router:   env.router,
		Store:    env.store,
		Notifier: env.notifier,
		BotID:    1,
		Interval: time.Hour,
	})
	r.roomDelay = 0
	return r
}

func startRoom(t *testing.T, env *testEnv, chatID int64) {
	t.Helper()
	if _, err := env.router.Enqueue(context.Background(), chatID, &domain.Track{URL: "https://x/1.mp3"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
}

func TestReaperEndsIdleRoom(t *testing.T) {
	env := newTestEnv(t)
	startRoom(t, env, -100)
	env.engine.participants = []domain.Participant{{UserID: env.assistant.ID}}
	env.engine.timeSecs = 20

	if n := newTestReaper(env).Sweep(context.Background()); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}
	if env.sessions.IsActive(-100) {
		t.Error("idle session not ended")
	}
	if !env.notifier.has("no listeners -100") {
		t.Errorf("notifications = %v", env.notifier.list())
	}
	if env.engine.leaveCount() != 1 {
		t.Errorf("leaves = %d, want 1", env.engine.leaveCount())
	}
}

func TestReaperSkips(t *testing.T) {
	tests := []struct {
		name         string
		autoEnd      bool
		participants []domain.Participant
		partErr      error
		played       int
	}{
		{name: "just started", autoEnd: true, participants: []domain.Participant{{UserID: 100}}, played: 5},
		{name: "listeners present", autoEnd: true, participants: []domain.Participant{{UserID: 100}, {UserID: 7}}, played: 600},
		{name: "auto end disabled", autoEnd: false, participants: []domain.Participant{{UserID: 100}}, played: 600},
		{name: "participants error", autoEnd: true, partErr: errors.New("timeout"), played: 600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			startRoom(t, env, -100)
			env.store.autoEnd = tt.autoEnd
			env.engine.participants = tt.participants
			env.engine.partErr = tt.partErr
			env.engine.timeSecs = tt.played

			if n := newTestReaper(env).Sweep(context.Background()); n != 0 {
				t.Fatalf("Sweep = %d, want 0", n)
			}
			if !env.sessions.IsActive(-100) {
				t.Error("session ended")
			}
			if len(env.notifier.list()) != 1 {
				t.Errorf("notifications = %v", env.notifier.list())
			}
		})
	}
}

func TestReaperSweepsEveryRoom(t *testing.T) {
	env := newTestEnv(t)
	startRoom(t, env, -100)
	startRoom(t, env, -200)
	env.engine.participants = []domain.Participant{{UserID: 100}}
	env.engine.timeSecs = 30

	if n := newTestReaper(env).Sweep(context.Background()); n != 2 {
		t.Fatalf("Sweep = %d, want 2", n)
	}
}

func TestReaperRunStopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	r := newTestReaper(env)
	r.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
