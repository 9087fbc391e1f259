package presence

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"ideation-workspace/core"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var ErrNotJoined = errors.New("presence: not joined")

type ClientOption func(*Client)

// OnUpdate is called with the current participant list whenever it changes.
func OnUpdate(fn func([]Record)) ClientOption {
	return func(c *Client) { c.onUpdate = fn }
}

// WithInterval overrides the cursor throttle interval.
func WithInterval(d time.Duration) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Every(d), 1) }
}

// Client is one participant's view of a workspace channel.
type Client struct {
	transport Transport
	channel   string
	identity  string
	limiter   *rate.Limiter
	onUpdate  func([]Record)

	mu     sync.Mutex
	self   Record
	peers  map[string]Record
	cancel context.CancelFunc
	done   chan struct{}
}

func NewClient(t Transport, workspaceID string, self Record, opts ...ClientOption) *Client {
	c := &Client{
		transport: t,
		channel:   ChannelName(workspaceID),
		identity:  self.Identity,
		limiter:   rate.NewLimiter(rate.Every(CursorInterval), 1),
		self:      self,
		peers:     make(map[string]Record),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Channel() string { return c.channel }

func (c *Client) Self() Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.self.clone()
}

// Join subscribes to the channel and announces this participant.
func (c *Client) Join(ctx context.Context) error {
	subCtx, cancel := context.WithCancel(context.Background())
	records, err := c.transport.Subscribe(subCtx, c.channel)
	if err != nil {
		cancel()
		return err
	}

	c.mu.Lock()
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.receive(records, done)

	return c.Announce(ctx)
}

func (c *Client) receive(records <-chan Record, done chan struct{}) {
	defer close(done)
	for rec := range records {
		if rec.Identity == "" || rec.Identity == c.identity {
			continue
		}

		c.mu.Lock()
		_, known := c.peers[rec.Identity]
		if rec.Left {
			delete(c.peers, rec.Identity)
		} else {
			c.peers[rec.Identity] = rec
		}
		list := c.participantsLocked()
		c.mu.Unlock()

		// A newcomer has not seen us yet.
		if !known && !rec.Left {
			if err := c.Announce(context.Background()); err != nil {
				logrus.WithError(err).WithField("channel", c.channel).Warn("Failed to announce presence")
			}
		}

		if c.onUpdate != nil {
			c.onUpdate(list)
		}
	}
}

// Announce broadcasts the full record immediately, bypassing the throttle.
func (c *Client) Announce(ctx context.Context) error {
	return c.transport.Publish(ctx, c.channel, c.Self())
}

// MoveCursor records the canvas position and broadcasts it unless a broadcast
// went out less than the throttle interval ago. Returns whether it was sent.
func (c *Client) MoveCursor(ctx context.Context, p core.Point) (bool, error) {
	c.mu.Lock()
	c.self.Cursor = &p
	c.mu.Unlock()

	if !c.limiter.Allow() {
		return false, nil
	}
	if err := c.Announce(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// HideCursor clears the cursor and broadcasts immediately.
func (c *Client) HideCursor(ctx context.Context) error {
	c.mu.Lock()
	c.self.Cursor = nil
	c.mu.Unlock()
	return c.Announce(ctx)
}

// Participants returns the last-known record of every other participant.
func (c *Client) Participants() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.participantsLocked()
}

func (c *Client) participantsLocked() []Record {
	out := make([]Record, 0, len(c.peers))
	for _, r := range c.peers {
		out = append(out, r.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

// Close announces departure and ends the subscription.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	leave := c.self.clone()
	c.mu.Unlock()

	if cancel == nil {
		return ErrNotJoined
	}

	cancel()
	<-done

	leave.Left = true
	leave.Cursor = nil
	if err := c.transport.Publish(ctx, c.channel, leave); err != nil {
		logrus.WithError(err).WithField("channel", c.channel).Warn("Failed to announce presence leave")
	}
	return nil
}
