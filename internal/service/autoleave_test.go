package service

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/set-night/vcplayer/internal/domain"
)

func TestLeaveAllSkipsActiveAndPrivateChats(t *testing.T) {
	env := newTestEnv(t)
	startRoom(t, env, -100)
	env.account.dialogs = []int64{-100, -200, 42, -300}

	l := NewAutoLeaver(env.pool, env.sessions, env.state)
	l.sleep = func(context.Context, time.Duration) error { return nil }

	if n := l.LeaveAll(context.Background()); n != 2 {
		t.Fatalf("LeaveAll = %d, want 2", n)
	}
	if !reflect.DeepEqual(env.account.left, []int64{-200, -300}) {
		t.Errorf("left = %v", env.account.left)
	}
	if s, _ := env.state.Membership(-200, env.assistant.ID); s != domain.MemberStatusLeft {
		t.Errorf("membership = %q, want left", s)
	}
}

func TestLeaveAllFloodWait(t *testing.T) {
	env := newTestEnv(t)
	env.account.dialogs = []int64{-200, -300}
	env.account.leaveErrs[-200] = []error{&domain.FloodWaitError{Seconds: 10}}
	env.account.leaveErrs[-300] = []error{&domain.FloodWaitError{Seconds: 500}}

	var slept []time.Duration
	l := NewAutoLeaver(env.pool, env.sessions, env.state)
	l.delay = 0
	l.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	if n := l.LeaveAll(context.Background()); n != 1 {
		t.Fatalf("LeaveAll = %d, want 1", n)
	}
	if !reflect.DeepEqual(env.account.left, []int64{-200}) {
		t.Errorf("left = %v", env.account.left)
	}
	if len(slept) == 0 || slept[0] != 10*time.Second {
		t.Errorf("slept = %v", slept)
	}
}

func TestAutoLeaverRejectsBadSchedule(t *testing.T) {
	env := newTestEnv(t)
	l := NewAutoLeaver(env.pool, env.sessions, env.state)
	if err := l.Run(context.Background(), "not a schedule"); err == nil {
		t.Fatal("expected schedule parse error")
	}
}
