package presence

import (
	"sort"
	"strings"
	"sync"
	"time"

	"ideation-workspace/metrics"

	"golang.org/x/time/rate"
)

// ChannelInfo summarises one channel for the active-channels listing.
type ChannelInfo struct {
	Name         string `json:"name"`
	Participants int    `json:"participants"`
}

// Roster is the server's last-known record of every participant per channel.
type Roster struct {
	mu       sync.RWMutex
	channels map[string]map[string]Record
}

func NewRoster() *Roster {
	return &Roster{channels: make(map[string]map[string]Record)}
}

// Update stores rec, or removes its participant when rec marks a departure.
func (r *Roster) Update(channel string, rec Record) {
	if rec.Left {
		r.Remove(channel, rec.Identity)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channels[channel] == nil {
		r.channels[channel] = make(map[string]Record)
	}
	r.channels[channel][rec.Identity] = rec.clone()
	metrics.PresenceChannels.Set(float64(len(r.channels)))
}

func (r *Roster) Remove(channel, identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.channels[channel], identity)
	if len(r.channels[channel]) == 0 {
		delete(r.channels, channel)
	}
	metrics.PresenceChannels.Set(float64(len(r.channels)))
}

// List returns the participants of channel ordered by identity.
func (r *Roster) List(channel string) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.channels[channel]))
	for _, rec := range r.channels[channel] {
		out = append(out, rec.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

func (r *Roster) Channels() []ChannelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ChannelInfo, 0, len(r.channels))
	for name, peers := range r.channels {
		out = append(out, ChannelInfo{Name: name, Participants: len(peers)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// WorkspaceID extracts the workspace id from a channel name.
func WorkspaceID(channel string) (string, bool) {
	id, ok := strings.CutPrefix(channel, "workspace:")
	return id, ok && id != ""
}

// LimiterIdle is how long an identity may stay silent before its limiter is evicted.
const LimiterIdle = 10 * time.Minute

// Limiters throttles cursor records per identity on the server side.
// Idle entries are swept lazily from Allow.
type Limiters struct {
	mu        sync.Mutex
	m         map[string]*limiterEntry
	interval  rate.Limit
	idle      time.Duration
	lastSweep time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastUsed time.Time
}

func NewLimiters() *Limiters {
	return &Limiters{
		m:         make(map[string]*limiterEntry),
		interval:  rate.Every(CursorInterval),
		idle:      LimiterIdle,
		lastSweep: time.Now(),
	}
}

func (l *Limiters) Allow(identity string) bool {
	now := time.Now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweepLocked(now, l.idle)
	}
	e, ok := l.m[identity]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.interval, 1)}
		l.m[identity] = e
	}
	e.lastUsed = now
	l.mu.Unlock()

	return e.lim.AllowN(now, 1)
}

func (l *Limiters) Forget(identity string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.m, identity)
}

// Sweep evicts limiters unused for longer than idle and returns how many were dropped.
func (l *Limiters) Sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.sweepLocked(time.Now(), idle)
}

func (l *Limiters) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func (l *Limiters) sweepLocked(now time.Time, idle time.Duration) int {
	n := 0
	for id, e := range l.m {
		if now.Sub(e.lastUsed) > idle {
			delete(l.m, id)
			n++
		}
	}
	l.lastSweep = now
	return n
}
