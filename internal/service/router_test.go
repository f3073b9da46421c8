package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/set-night/vcplayer/internal/config"
	"github.com/set-night/vcplayer/internal/domain"
)

func TestEnqueueStartsFirstTrack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pos, err := env.router.Enqueue(ctx, -100, &domain.Track{URL: "https://x/1.mp3", Title: "one"})
	if err != nil || pos != 0 {
		t.Fatalf("Enqueue = %d, %v; want 0, nil", pos, err)
	}
	pos, err = env.router.Enqueue(ctx, -100, &domain.Track{URL: "https://x/2.mp3", Title: "two"})
	if err != nil || pos != 1 {
		t.Fatalf("Enqueue = %d, %v; want 1, nil", pos, err)
	}

	if env.engine.playCount() != 1 {
		t.Errorf("plays = %d, want 1", env.engine.playCount())
	}
	if !env.notifier.has("playing -100 one") {
		t.Errorf("notifications = %v", env.notifier.list())
	}
	if got := env.sessions.Playing(-100); got.FilePath == "" {
		t.Error("downloaded path not stored on the track")
	}
	if env.sessions.StreamID(-100) != env.engine.lastPlay().ID {
		t.Error("session stream id does not match the engine stream")
	}
}

func TestEnqueueQueueFull(t *testing.T) {
	env := newTestEnv(t)
	env.router.maxQueue = 2
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := env.router.Enqueue(ctx, -100, &domain.Track{URL: "https://x/a.mp3"}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	if _, err := env.router.Enqueue(ctx, -100, &domain.Track{URL: "https://x/b.mp3"}); !errors.Is(err, domain.ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
}

func TestEnqueueDownloadFailureClearsRoom(t *testing.T) {
	env := newTestEnv(t)
	env.downloader.fail["https://x/bad.mp3"] = true

	_, err := env.router.Enqueue(context.Background(), -100, &domain.Track{URL: "https://x/bad.mp3"})
	var dlErr *domain.DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("err = %v, want DownloadError", err)
	}
	if env.sessions.IsActive(-100) || env.sessions.Len(-100) != 0 {
		t.Error("failed first track left a session behind")
	}
}

func TestEmptyQueueEndsSession(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.router.Enqueue(context.Background(), -100, &domain.Track{URL: "https://x/1.mp3"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	env.endCurrent(-100)

	if env.sessions.IsActive(-100) {
		t.Error("session still active after the last track")
	}
	if env.engine.leaveCount() != 1 {
		t.Errorf("leaves = %d, want 1", env.engine.leaveCount())
	}
	if !env.notifier.has("finished -100") {
		t.Errorf("notifications = %v", env.notifier.list())
	}
}

func TestLoopPlaysTrackAgain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.router.Enqueue(ctx, -100, &domain.Track{URL: "https://x/1.mp3"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := env.router.SetLoop(-100, 2); err != nil {
		t.Fatalf("SetLoop: %v", err)
	}

	env.endCurrent(-100)
	env.endCurrent(-100)
	if !env.sessions.IsActive(-100) {
		t.Fatal("session ended while loops remained")
	}
	env.endCurrent(-100)

	if got := env.engine.playCount(); got != 3 {
		t.Errorf("plays = %d, want 3", got)
	}
	if env.sessions.IsActive(-100) {
		t.Error("session still active after loops ran out")
	}
	if env.downloader.calls != 1 {
		t.Errorf("downloads = %d, want 1", env.downloader.calls)
	}
}

func TestSetLoopValidation(t *testing.T) {
	env := newTestEnv(t)
	if err := env.router.SetLoop(-100, 11); !errors.Is(err, domain.ErrBadLoopCount) {
		t.Errorf("SetLoop(11) err = %v", err)
	}
	if err := env.router.SetLoop(-100, 1); !errors.Is(err, domain.ErrNothingPlaying) {
		t.Errorf("SetLoop on empty room err = %v", err)
	}
}

func TestDownloadFailureSkipsToFollowingTrack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.downloader.fail["https://x/bad.mp3"] = true

	for _, tr := range []*domain.Track{
		{URL: "https://x/1.mp3", Title: "one"},
		{URL: "https://x/bad.mp3", Title: "bad"},
		{URL: "https://x/3.mp3", Title: "three"},
	} {
		if _, err := env.router.Enqueue(ctx, -100, tr); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	env.endCurrent(-100)

	if got := env.sessions.Playing(-100); got == nil || got.Title != "three" {
		t.Fatalf("playing = %+v, want three", got)
	}
	if !env.notifier.has("download failed -100 bad") {
		t.Errorf("notifications = %v", env.notifier.list())
	}
	if env.engine.playCount() != 2 {
		t.Errorf("plays = %d, want 2", env.engine.playCount())
	}
}

func TestPlaybackFailureNotifies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, u := range []string{"https://x/1.mp3", "https://x/2.mp3"} {
		if _, err := env.router.Enqueue(ctx, -100, &domain.Track{URL: u, Title: u}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	env.engine.mu.Lock()
	env.engine.playErr = domain.ErrConnectionLost
	env.engine.mu.Unlock()

	if err := env.router.PlayNext(ctx, -100); !errors.Is(err, domain.ErrConnectionLost) {
		t.Fatalf("PlayNext err = %v", err)
	}
	if !env.notifier.has("playback failed -100 https://x/2.mp3") {
		t.Errorf("notifications = %v", env.notifier.list())
	}
}

func TestSkipRacingNaturalEndAdvancesOnce(t *testing.T) {
	for i := 0; i < 50; i++ {
		env := newTestEnv(t)
		ctx := context.Background()
		for _, u := range []string{"https://x/1.mp3", "https://x/2.mp3", "https://x/3.mp3"} {
			if _, err := env.router.Enqueue(ctx, -100, &domain.Track{URL: u}); err != nil {
				t.Fatalf("Enqueue: %v", err)
			}
		}
		first := env.sessions.Playing(-100)
		streamID := env.sessions.StreamID(-100)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := env.router.SkipTrack(ctx, -100, first.ID); err != nil {
				t.Errorf("SkipTrack: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			env.router.HandleEvent(ctx, env.assistant, domain.Event{
				Kind:     domain.EventStreamEnded,
				ChatID:   -100,
				StreamID: streamID,
			})
		}()
		wg.Wait()

		if got := env.sessions.Len(-100); got != 2 {
			t.Fatalf("run %d: queue length = %d, want 2", i, got)
		}
		if got := env.engine.playCount(); got != 2 {
			t.Fatalf("run %d: plays = %d, want 2", i, got)
		}
	}
}

func TestSkipRacingAnonymousEndAdvancesOnce(t *testing.T) {
	for i := 0; i < 50; i++ {
		env := newTestEnv(t)
		ctx := context.Background()
		for _, u := range []string{"https://x/1.mp3", "https://x/2.mp3", "https://x/3.mp3"} {
			if _, err := env.router.Enqueue(ctx, -100, &domain.Track{URL: u}); err != nil {
				t.Fatalf("Enqueue: %v", err)
			}
		}
		first := env.sessions.Playing(-100)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := env.router.SkipTrack(ctx, -100, first.ID); err != nil {
				t.Errorf("SkipTrack: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			env.router.HandleEvent(ctx, env.assistant, domain.Event{
				Kind:   domain.EventStreamEnded,
				ChatID: -100,
				Stream: domain.StreamKindAudio,
			})
		}()
		wg.Wait()

		if got := env.sessions.Len(-100); got != 2 {
			t.Fatalf("run %d: queue length = %d, want 2", i, got)
		}
		if got := env.engine.playCount(); got != 2 {
			t.Fatalf("run %d: plays = %d, want 2", i, got)
		}
	}
}

func TestAnonymousEndAfterSkipIsStale(t *testing.T) {
	env := newTestEnv(t)
	env.sessions.now = env.clock.Now
	ctx := context.Background()
	for _, u := range []string{"https://x/1.mp3", "https://x/2.mp3", "https://x/3.mp3", "https://x/4.mp3"} {
		if _, err := env.router.Enqueue(ctx, -100, &domain.Track{URL: u}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	anonymousEnd := domain.Event{Kind: domain.EventStreamEnded, ChatID: -100, Stream: domain.StreamKindAudio}

	if err := env.router.Skip(ctx, -100); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	env.router.HandleEvent(ctx, env.assistant, anonymousEnd)
	if got, plays := env.sessions.Len(-100), env.engine.playCount(); got != 3 || plays != 2 {
		t.Fatalf("after late end: queue length = %d plays = %d, want 3, 2", got, plays)
	}

	// the next anonymous end is the real one
	env.router.HandleEvent(ctx, env.assistant, anonymousEnd)
	if got := env.sessions.Len(-100); got != 2 {
		t.Fatalf("after natural end: queue length = %d, want 2", got)
	}

	if err := env.router.Skip(ctx, -100); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	env.clock.Advance(2 * config.RetiredStreamWindow)
	env.router.HandleEvent(ctx, env.assistant, anonymousEnd)
	if env.sessions.IsActive(-100) {
		t.Error("end arriving long after a skip was dropped")
	}
}

func TestAnonymousEndAfterSpeedChangeIsStale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, u := range []string{"https://x/1.mp3", "https://x/2.mp3"} {
		if _, err := env.router.Enqueue(ctx, -100, &domain.Track{URL: u}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	if err := env.player.ChangeSpeed(ctx, -100, 1.5); err != nil {
		t.Fatalf("ChangeSpeed: %v", err)
	}
	env.router.HandleEvent(ctx, env.assistant, domain.Event{Kind: domain.EventStreamEnded, ChatID: -100})
	if got := env.sessions.Len(-100); got != 2 {
		t.Errorf("queue length = %d, want 2", got)
	}
}

func TestSkipOnEmptyRoom(t *testing.T) {
	env := newTestEnv(t)
	if err := env.router.Skip(context.Background(), -100); !errors.Is(err, domain.ErrNothingPlaying) {
		t.Fatalf("Skip err = %v", err)
	}
}

func TestSkipIgnoresLoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, u := range []string{"https://x/1.mp3", "https://x/2.mp3"} {
		if _, err := env.router.Enqueue(ctx, -100, &domain.Track{URL: u, Title: u}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	_ = env.router.SetLoop(-100, 3)

	if err := env.router.Skip(ctx, -100); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if got := env.sessions.Playing(-100); got.Title != "https://x/2.mp3" {
		t.Errorf("playing = %s after skip", got.Title)
	}
}

func TestStaleAndVideoEndsIgnored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, u := range []string{"https://x/1.mp3", "https://x/2.mp3"} {
		if _, err := env.router.Enqueue(ctx, -100, &domain.Track{URL: u}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	env.router.HandleEvent(ctx, env.assistant, domain.Event{Kind: domain.EventStreamEnded, ChatID: -100, StreamID: "old"})
	env.router.HandleEvent(ctx, env.assistant, domain.Event{
		Kind:     domain.EventStreamEnded,
		ChatID:   -100,
		StreamID: env.sessions.StreamID(-100),
		Stream:   domain.StreamKindVideo,
	})
	env.router.HandleEvent(ctx, env.assistant, domain.Event{Kind: domain.EventStreamEnded, ChatID: -999})

	if env.sessions.Len(-100) != 2 || env.engine.playCount() != 1 {
		t.Errorf("queue = %d plays = %d; ignored events advanced the queue", env.sessions.Len(-100), env.engine.playCount())
	}
}

func TestKickedEventClearsRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.router.Enqueue(ctx, -100, &domain.Track{URL: "https://x/1.mp3"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	env.router.HandleEvent(ctx, env.assistant, domain.Event{Kind: domain.EventKicked, ChatID: -100})

	if env.sessions.IsActive(-100) {
		t.Error("session survived the assistant being kicked")
	}
	if s, _ := env.state.Membership(-100, env.assistant.ID); s != domain.MemberStatusBanned {
		t.Errorf("membership = %q, want kicked", s)
	}
}

func TestCallClosedEndsSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.router.Enqueue(ctx, -100, &domain.Track{URL: "https://x/1.mp3"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	env.router.HandleEvent(ctx, env.assistant, domain.Event{Kind: domain.EventCallClosed, ChatID: -100})
	if env.sessions.IsActive(-100) {
		t.Error("session survived the call closing")
	}
}

func TestRunDispatchesUntilCancelled(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.router.Enqueue(context.Background(), -100, &domain.Track{URL: "https://x/1.mp3"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.router.Run(ctx) }()

	env.engine.events <- domain.Event{
		Kind:     domain.EventStreamEnded,
		ChatID:   -100,
		StreamID: env.sessions.StreamID(-100),
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.sessions.IsActive(-100) {
		if time.Now().After(deadline) {
			t.Fatal("event was not dispatched")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
