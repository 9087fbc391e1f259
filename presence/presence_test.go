package presence

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"ideation-workspace/core"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestNewIdentity(t *testing.T) {
	rec := NewIdentity()
	if !strings.HasPrefix(rec.Identity, "user_") || len(rec.Identity) != 9 {
		t.Errorf("identity format mismatch: %s", rec.Identity)
	}
	if rec.Name != "User "+rec.Identity[5:] {
		t.Errorf("name mismatch: got %s for %s", rec.Name, rec.Identity)
	}
	if rec.Color != ColorFor(rec.Identity) {
		t.Errorf("color not derived from identity: %s", rec.Color)
	}
	if rec.Cursor != nil {
		t.Error("new identity should have no cursor")
	}
}

func TestColorForIsStableAndInPalette(t *testing.T) {
	for _, id := range []string{"", "user_0001", "user_9999", "a-much-longer-identity-that-overflows-the-hash"} {
		c := ColorFor(id)
		if c != ColorFor(id) {
			t.Errorf("color for %q not stable", id)
		}
		found := false
		for _, p := range Palette {
			if p == c {
				found = true
			}
		}
		if !found {
			t.Errorf("color %s for %q not in palette", c, id)
		}
	}
}

func TestChannelName(t *testing.T) {
	if got := ChannelName("abc"); got != "workspace:abc" {
		t.Errorf("channel mismatch: got %s", got)
	}
	if id, ok := WorkspaceID("workspace:abc"); !ok || id != "abc" {
		t.Errorf("workspace id mismatch: got %q %v", id, ok)
	}
	if _, ok := WorkspaceID("room:abc"); ok {
		t.Error("foreign channel accepted")
	}
}

type updates struct {
	mu   sync.Mutex
	last []Record
	ch   chan struct{}
}

func newUpdates() *updates {
	return &updates{ch: make(chan struct{}, 64)}
}

func (u *updates) record(list []Record) {
	u.mu.Lock()
	u.last = list
	u.mu.Unlock()
	select {
	case u.ch <- struct{}{}:
	default:
	}
}

func (u *updates) waitFor(t *testing.T, cond func([]Record) bool) []Record {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		u.mu.Lock()
		last := u.last
		u.mu.Unlock()
		if cond(last) {
			return last
		}
		select {
		case <-u.ch:
		case <-deadline:
			t.Fatalf("timed out; last participants %v", last)
			return nil
		}
	}
}

func exerciseClients(t *testing.T, transport Transport) {
	ctx := context.Background()

	aliceSeen := newUpdates()
	alice := NewClient(transport, "ws1", Record{Identity: "user_0001", Name: "User 0001", Color: "#FF6B6B"}, OnUpdate(aliceSeen.record))
	bob := NewClient(transport, "ws1", Record{Identity: "user_0002", Name: "User 0002", Color: "#4ECDC4"})

	if err := alice.Join(ctx); err != nil {
		t.Fatalf("alice join: %v", err)
	}
	if err := bob.Join(ctx); err != nil {
		t.Fatalf("bob join: %v", err)
	}

	aliceSeen.waitFor(t, func(rs []Record) bool {
		return len(rs) == 1 && rs[0].Identity == "user_0002" && rs[0].Cursor == nil
	})

	sent, err := bob.MoveCursor(ctx, core.Point{X: 12, Y: 34})
	if err != nil || !sent {
		t.Fatalf("first cursor move should be sent: sent=%v err=%v", sent, err)
	}
	if sent, _ := bob.MoveCursor(ctx, core.Point{X: 13, Y: 35}); sent {
		t.Error("second cursor move inside the interval should be throttled")
	}
	if c := bob.Self().Cursor; c == nil || c.X != 13 {
		t.Errorf("throttled move should still update local cursor: %v", c)
	}

	aliceSeen.waitFor(t, func(rs []Record) bool {
		// A later re-announce may already carry the throttled position.
		return len(rs) == 1 && rs[0].Cursor != nil && rs[0].Cursor.X >= 12
	})

	if err := bob.Close(ctx); err != nil {
		t.Fatalf("bob close: %v", err)
	}
	aliceSeen.waitFor(t, func(rs []Record) bool { return len(rs) == 0 })

	if err := alice.Close(ctx); err != nil {
		t.Fatalf("alice close: %v", err)
	}
	if err := alice.Close(ctx); err != ErrNotJoined {
		t.Errorf("second close should report not joined, got %v", err)
	}
}

func TestClientsOverLocalTransport(t *testing.T) {
	exerciseClients(t, NewLocalTransport())
}

func TestClientsOverRedisTransport(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exerciseClients(t, NewRedisTransport(client))
}

func TestCursorThrottleReleases(t *testing.T) {
	c := NewClient(NewLocalTransport(), "ws", NewIdentity(), WithInterval(10*time.Millisecond))
	ctx := context.Background()

	if sent, _ := c.MoveCursor(ctx, core.Point{}); !sent {
		t.Fatal("first move should be sent")
	}
	time.Sleep(20 * time.Millisecond)
	if sent, _ := c.MoveCursor(ctx, core.Point{X: 1}); !sent {
		t.Error("move after the interval should be sent")
	}
}

func TestLocalTransportIsolatesChannels(t *testing.T) {
	tr := NewLocalTransport()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, _ := tr.Subscribe(ctx, "workspace:a")
	b, _ := tr.Subscribe(ctx, "workspace:b")

	if err := tr.Publish(ctx, "workspace:a", Record{Identity: "x"}); err != nil {
		t.Fatal(err)
	}

	select {
	case rec := <-a:
		if rec.Identity != "x" {
			t.Errorf("identity mismatch: %s", rec.Identity)
		}
	case <-time.After(time.Second):
		t.Fatal("record not delivered")
	}
	select {
	case rec := <-b:
		t.Errorf("record leaked to other channel: %+v", rec)
	default:
	}

	cancel()
	if _, ok := <-a; ok {
		t.Error("subscription channel should close when ctx is done")
	}
}

func TestRoster(t *testing.T) {
	r := NewRoster()
	p := core.Point{X: 1, Y: 2}

	r.Update("workspace:a", Record{Identity: "u2", Cursor: &p})
	r.Update("workspace:a", Record{Identity: "u1"})
	r.Update("workspace:b", Record{Identity: "u3"})

	list := r.List("workspace:a")
	if len(list) != 2 || list[0].Identity != "u1" || list[1].Identity != "u2" {
		t.Fatalf("roster list mismatch: %+v", list)
	}
	p.X = 100
	if r.List("workspace:a")[1].Cursor.X != 1 {
		t.Error("roster shares cursor storage with caller")
	}

	chans := r.Channels()
	if len(chans) != 2 || chans[0].Name != "workspace:a" || chans[0].Participants != 2 {
		t.Errorf("channels mismatch: %+v", chans)
	}

	r.Update("workspace:b", Record{Identity: "u3", Left: true})
	if len(r.Channels()) != 1 {
		t.Errorf("empty channel should be dropped: %+v", r.Channels())
	}
	r.Remove("workspace:a", "u1")
	if len(r.List("workspace:a")) != 1 {
		t.Error("remove did not drop participant")
	}
}

func TestLimiters(t *testing.T) {
	l := NewLimiters()
	if !l.Allow("a") {
		t.Fatal("first record should pass")
	}
	if l.Allow("a") {
		t.Error("second record inside the interval should be limited")
	}
	if !l.Allow("b") {
		t.Error("limits should be per identity")
	}
	l.Forget("a")
	if !l.Allow("a") {
		t.Error("forgotten identity should start fresh")
	}
}

func TestLimitersSweepIdle(t *testing.T) {
	l := NewLimiters()
	l.Allow("gone")
	time.Sleep(20 * time.Millisecond)
	l.Allow("active")

	if n := l.Sweep(10 * time.Millisecond); n != 1 {
		t.Errorf("Swept count mismatch: got %d, want 1", n)
	}
	if l.Len() != 1 {
		t.Errorf("Expected only the active identity to remain, got %d", l.Len())
	}
	if !l.Allow("gone") {
		t.Error("evicted identity should start fresh")
	}
}
