package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/set-night/vcplayer/internal/domain"
)

type fakeEngine struct {
	mu           sync.Mutex
	plays        []domain.StreamDescriptor
	configs      []domain.CallConfig
	leaves       int
	playErr      error
	leaveErr     error
	volume       int
	timeSecs     int
	timeErr      error
	participants []domain.Participant
	partErr      error
	events       chan domain.Event
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{events: make(chan domain.Event, 16)}
}

func (e *fakeEngine) Play(_ context.Context, _ int64, stream domain.StreamDescriptor, cfg domain.CallConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playErr != nil {
		return e.playErr
	}
	e.plays = append(e.plays, stream)
	e.configs = append(e.configs, cfg)
	return nil
}

func (e *fakeEngine) Leave(context.Context, int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.leaves++
	return e.leaveErr
}

func (e *fakeEngine) Pause(context.Context, int64) error  { return nil }
func (e *fakeEngine) Resume(context.Context, int64) error { return nil }
func (e *fakeEngine) Mute(context.Context, int64) error   { return nil }
func (e *fakeEngine) Unmute(context.Context, int64) error { return domain.ErrNotInCall }

func (e *fakeEngine) ChangeVolume(_ context.Context, _ int64, volume int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = volume
	return nil
}

func (e *fakeEngine) Time(context.Context, int64) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeSecs, e.timeErr
}

func (e *fakeEngine) Participants(context.Context, int64) ([]domain.Participant, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.participants, e.partErr
}

func (e *fakeEngine) Ping(context.Context) (float64, error)     { return 12.5, nil }
func (e *fakeEngine) CPUUsage(context.Context) (float64, error) { return 3.2, nil }
func (e *fakeEngine) Events() <-chan domain.Event               { return e.events }

func (e *fakeEngine) playCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.plays)
}

func (e *fakeEngine) lastPlay() domain.StreamDescriptor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plays[len(e.plays)-1]
}

func (e *fakeEngine) leaveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.leaves
}

type fakeAccount struct {
	mu        sync.Mutex
	joinErrs  []error
	joins     []string
	leaveErrs map[int64][]error
	left      []int64
	dialogs   []int64
}

func (a *fakeAccount) Me(context.Context) (AccountInfo, error) {
	return AccountInfo{ID: 100, Username: "helper"}, nil
}

func (a *fakeAccount) JoinChat(_ context.Context, link string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.joins = append(a.joins, link)
	if len(a.joinErrs) == 0 {
		return nil
	}
	err := a.joinErrs[0]
	a.joinErrs = a.joinErrs[1:]
	return err
}

func (a *fakeAccount) LeaveChat(_ context.Context, chatID int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if errs := a.leaveErrs[chatID]; len(errs) > 0 {
		a.leaveErrs[chatID] = errs[1:]
		if errs[0] != nil {
			return errs[0]
		}
	}
	a.left = append(a.left, chatID)
	return nil
}

func (a *fakeAccount) Dialogs(context.Context) ([]int64, error) {
	return a.dialogs, nil
}

type fakeAdmin struct {
	mu        sync.Mutex
	status    map[int64]domain.MemberStatus
	statusErr error
	link      string
	invites   int
	approved  []int64
	lifted    []int64
	liftErr   error
	kind      domain.RoomKind
	kindErr   error
}

func newFakeAdmin() *fakeAdmin {
	return &fakeAdmin{
		status: make(map[int64]domain.MemberStatus),
		link:   "https://t.me/+abc",
		kind:   domain.RoomKindSupergroup,
	}
}

func (f *fakeAdmin) CreateInviteLink(context.Context, int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invites++
	return f.link, nil
}

func (f *fakeAdmin) ApproveJoinRequest(_ context.Context, _ int64, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approved = append(f.approved, userID)
	return nil
}

func (f *fakeAdmin) MemberStatus(_ context.Context, _ int64, userID int64) (domain.MemberStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return "", f.statusErr
	}
	s, ok := f.status[userID]
	if !ok {
		return domain.MemberStatusMember, nil
	}
	return s, nil
}

func (f *fakeAdmin) LiftRestriction(_ context.Context, _ int64, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.liftErr != nil {
		return f.liftErr
	}
	f.lifted = append(f.lifted, userID)
	f.status[userID] = domain.MemberStatusLeft
	return nil
}

func (f *fakeAdmin) MemberCount(context.Context, int64) (int, error) { return 5, nil }

func (f *fakeAdmin) RoomKind(context.Context, int64) (domain.RoomKind, error) {
	return f.kind, f.kindErr
}

type fakeStore struct {
	mu          sync.Mutex
	assignments map[int64]string
	sets        int
	getErr      error
	autoEnd     bool
	logger      bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{assignments: make(map[int64]string), autoEnd: true}
}

func (s *fakeStore) GetAssignment(_ context.Context, chatID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	return s.assignments[chatID], nil
}

func (s *fakeStore) SetAssignment(_ context.Context, chatID int64, assistant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	s.assignments[chatID] = assistant
	return nil
}

func (s *fakeStore) GetAutoEnd(context.Context, int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoEnd, nil
}

func (s *fakeStore) GetLoggerStatus(context.Context, int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logger, nil
}

type fakeDownloader struct {
	mu     sync.Mutex
	dir    string
	fail   map[string]bool
	calls  int
}

func (d *fakeDownloader) IsValid(ref string) bool { return ref != "" }

func (d *fakeDownloader) GetTrack(_ context.Context, ref string) (*domain.Track, error) {
	return &domain.Track{URL: ref, Title: ref, Duration: 180, Platform: domain.PlatformDirect}, nil
}

func (d *fakeDownloader) DownloadTrack(_ context.Context, track *domain.Track, _ bool) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.fail[track.URL] {
		return "", fmt.Errorf("fetch %s: 404", track.URL)
	}
	path := filepath.Join(d.dir, track.ID+".mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) add(format string, args ...any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, fmt.Sprintf(format, args...))
}

func (n *fakeNotifier) NowPlaying(_ context.Context, chatID int64, t *domain.Track) {
	n.add("playing %d %s", chatID, t.Title)
}

func (n *fakeNotifier) QueueFinished(_ context.Context, chatID int64) {
	n.add("finished %d", chatID)
}

func (n *fakeNotifier) DownloadFailed(_ context.Context, chatID int64, t *domain.Track, _ error) {
	n.add("download failed %d %s", chatID, t.Title)
}

func (n *fakeNotifier) PlaybackFailed(_ context.Context, chatID int64, t *domain.Track, _ error) {
	n.add("playback failed %d %s", chatID, t.Title)
}

func (n *fakeNotifier) NoListeners(_ context.Context, chatID int64) {
	n.add("no listeners %d", chatID)
}

func (n *fakeNotifier) list() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func (n *fakeNotifier) has(event string) bool {
	for _, e := range n.list() {
		if e == event {
			return true
		}
	}
	return false
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testEnv wires the service layer around one assistant and in-memory fakes.
type testEnv struct {
	engine     *fakeEngine
	account    *fakeAccount
	admin      *fakeAdmin
	store      *fakeStore
	downloader *fakeDownloader
	notifier   *fakeNotifier
	clock      *fakeClock
	assistant  *Assistant

	state    *CallState
	sessions *SessionCache
	locks    *RoomLocks
	pool     *AssistantPool
	joiner   *JoinCoordinator
	player   *Player
	router   *Router
	dir      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	env := &testEnv{
		engine:     newFakeEngine(),
		account:    &fakeAccount{leaveErrs: make(map[int64][]error)},
		admin:      newFakeAdmin(),
		store:      newFakeStore(),
		downloader: &fakeDownloader{dir: dir, fail: make(map[string]bool)},
		notifier:   &fakeNotifier{},
		clock:      newFakeClock(),
		dir:        dir,
	}
	env.assistant = &Assistant{
		Name:     "a1",
		ID:       100,
		Username: "helper",
		Account:  env.account,
		Calls:    env.engine,
	}

	env.state = NewCallState(env.clock.Now)
	env.sessions = NewSessionCache()
	env.locks = NewRoomLocks()
	env.pool = NewAssistantPool(env.store, env.state)
	env.pool.Register(env.assistant)
	env.joiner = NewJoinCoordinator(env.admin, env.state)
	env.joiner.sleep = func(context.Context, time.Duration) error { return nil }
	env.player = NewPlayer(PlayerDeps{
		Pool:     env.pool,
		Joiner:   env.joiner,
		Sessions: env.sessions,
		State:    env.state,
		Locks:    env.locks,
		Admin:    env.admin,
		Store:    env.store,
	})
	env.router = NewRouter(RouterDeps{
		Player:     env.player,
		Sessions:   env.sessions,
		Locks:      env.locks,
		Pool:       env.pool,
		State:      env.state,
		Downloader: env.downloader,
		Notifier:   env.notifier,
		MaxQueue:   10,
	})
	return env
}

// mediaFile creates a local media file and returns its path.
func (e *testEnv) mediaFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}
	return path
}

// endCurrent delivers a natural stream end for whatever stream is on air.
func (e *testEnv) endCurrent(chatID int64) {
	e.router.HandleEvent(context.Background(), e.assistant, domain.Event{
		Kind:     domain.EventStreamEnded,
		ChatID:   chatID,
		StreamID: e.sessions.StreamID(chatID),
		Stream:   domain.StreamKindAudio,
	})
}
