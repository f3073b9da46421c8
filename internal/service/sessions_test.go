package service

import (
	"reflect"
	"sync"
	"testing"

	"github.com/set-night/vcplayer/internal/domain"
)

func newRecordingCache() (*SessionCache, *[]string) {
	c := NewSessionCache()
	var mu sync.Mutex
	removed := &[]string{}
	c.remove = func(path string) error {
		mu.Lock()
		defer mu.Unlock()
		*removed = append(*removed, path)
		return nil
	}
	return c, removed
}

func trackIDs(tracks []*domain.Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

func TestSessionCacheFIFO(t *testing.T) {
	c, removed := newRecordingCache()
	const chat = int64(-100)

	for i, id := range []string{"t1", "t2", "t3"} {
		pos := c.AddTrack(chat, &domain.Track{ID: id, FilePath: id + ".mp3"})
		if pos != i {
			t.Fatalf("AddTrack(%s) position = %d, want %d", id, pos, i)
		}
	}
	if !c.IsActive(chat) {
		t.Fatal("room should be active after enqueue")
	}
	if got := c.Playing(chat).ID; got != "t1" {
		t.Errorf("Playing = %s, want t1", got)
	}
	if got := c.Upcoming(chat).ID; got != "t2" {
		t.Errorf("Upcoming = %s, want t2", got)
	}

	popped := c.PopCurrent(chat, true)
	if popped.ID != "t1" {
		t.Errorf("PopCurrent = %s, want t1", popped.ID)
	}
	if got := trackIDs(c.Queue(chat)); !reflect.DeepEqual(got, []string{"t2", "t3"}) {
		t.Errorf("queue = %v", got)
	}
	if !reflect.DeepEqual(*removed, []string{"t1.mp3"}) {
		t.Errorf("removed files = %v", *removed)
	}

	c.PopCurrent(chat, false)
	if len(*removed) != 1 {
		t.Errorf("PopCurrent without disk clear removed files: %v", *removed)
	}
}

func TestSessionCacheQueueLengthMatchesActive(t *testing.T) {
	c, _ := newRecordingCache()
	const chat = int64(-100)

	if c.IsActive(chat) || c.Len(chat) != 0 {
		t.Fatal("unknown room should be inactive and empty")
	}
	c.AddTrack(chat, &domain.Track{ID: "t1"})
	c.Clear(chat, true)
	if c.IsActive(chat) || c.Len(chat) != 0 {
		t.Error("cleared room should be inactive and empty")
	}
	if c.Playing(chat) != nil {
		t.Error("cleared room still has a track on air")
	}
}

func TestSessionCacheRemoveAt(t *testing.T) {
	c, removed := newRecordingCache()
	const chat = int64(-100)
	for _, id := range []string{"t1", "t2", "t3"} {
		c.AddTrack(chat, &domain.Track{ID: id, FilePath: id + ".mp3"})
	}

	if _, err := c.RemoveAt(chat, 0); err != domain.ErrTrackNotFound {
		t.Errorf("RemoveAt(0) err = %v, want ErrTrackNotFound", err)
	}
	if _, err := c.RemoveAt(chat, 3); err != domain.ErrTrackNotFound {
		t.Errorf("RemoveAt(3) err = %v, want ErrTrackNotFound", err)
	}

	got, err := c.RemoveAt(chat, 1)
	if err != nil || got.ID != "t2" {
		t.Fatalf("RemoveAt(1) = %v, %v", got, err)
	}
	if ids := trackIDs(c.Queue(chat)); !reflect.DeepEqual(ids, []string{"t1", "t3"}) {
		t.Errorf("queue = %v", ids)
	}
	if !reflect.DeepEqual(*removed, []string{"t2.mp3"}) {
		t.Errorf("removed = %v", *removed)
	}
}

func TestSessionCacheClearUpcoming(t *testing.T) {
	c, _ := newRecordingCache()
	const chat = int64(-100)
	for _, id := range []string{"t1", "t2", "t3"} {
		c.AddTrack(chat, &domain.Track{ID: id})
	}
	if n := c.ClearUpcoming(chat); n != 2 {
		t.Errorf("ClearUpcoming = %d, want 2", n)
	}
	if ids := trackIDs(c.Queue(chat)); !reflect.DeepEqual(ids, []string{"t1"}) {
		t.Errorf("queue = %v", ids)
	}
	c.AddTrack(chat, &domain.Track{ID: "t4"})
	if ids := trackIDs(c.Queue(chat)); !reflect.DeepEqual(ids, []string{"t1", "t4"}) {
		t.Errorf("queue after re-add = %v", ids)
	}
}

func TestSessionCacheReadsAreCopies(t *testing.T) {
	c, _ := newRecordingCache()
	const chat = int64(-100)
	c.AddTrack(chat, &domain.Track{ID: "t1", Loop: 2})

	p := c.Playing(chat)
	p.Loop = 9
	if got := c.LoopCount(chat); got != 2 {
		t.Errorf("LoopCount = %d after mutating a copy, want 2", got)
	}

	c.UpdateTrack(chat, "t1", func(tr *domain.Track) { tr.FilePath = "/tmp/t1.mp3" })
	if got := c.Playing(chat).FilePath; got != "/tmp/t1.mp3" {
		t.Errorf("FilePath = %q", got)
	}
}

func TestSessionCacheActiveChatsAndStream(t *testing.T) {
	c, _ := newRecordingCache()
	c.AddTrack(-300, &domain.Track{ID: "a"})
	c.AddTrack(-100, &domain.Track{ID: "b"})
	c.AddTrack(-200, &domain.Track{ID: "c"})
	c.SetActive(-200, false)

	if got := c.ActiveChats(); !reflect.DeepEqual(got, []int64{-300, -100}) {
		t.Errorf("ActiveChats = %v", got)
	}

	c.MarkStreaming(-100, "a1", "s1")
	snap, ok := c.Snapshot(-100)
	if !ok || snap.Assistant != "a1" || snap.StreamID != "s1" {
		t.Errorf("Snapshot = %+v, %v", snap, ok)
	}
	if c.StreamID(-300) != "" {
		t.Error("stream id set on a room that never streamed")
	}
}

func TestSessionCacheSkipsRemoteFiles(t *testing.T) {
	c, removed := newRecordingCache()
	c.AddTrack(-1, &domain.Track{ID: "t", FilePath: "https://cdn/x.mp3", Thumbnail: "thumb.jpg"})
	c.Clear(-1, true)
	if !reflect.DeepEqual(*removed, []string{"thumb.jpg"}) {
		t.Errorf("removed = %v", *removed)
	}
}
