package presence

import (
	"context"
	"sync"

	"ideation-workspace/metrics"
)

// Transport is a publish/subscribe primitive keyed by channel name.
type Transport interface {
	Publish(ctx context.Context, channel string, rec Record) error

	// Subscribe delivers records published to channel until ctx is done,
	// then closes the returned channel.
	Subscribe(ctx context.Context, channel string) (<-chan Record, error)
}

const subscriberBuffer = 64

// LocalTransport fans records out in-process. Slow subscribers lose records
// rather than block publishers.
type LocalTransport struct {
	mu   sync.RWMutex
	subs map[string]map[chan Record]struct{}
}

func NewLocalTransport() *LocalTransport {
	return &LocalTransport{subs: make(map[string]map[chan Record]struct{})}
}

func (t *LocalTransport) Publish(ctx context.Context, channel string, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	for ch := range t.subs[channel] {
		select {
		case ch <- rec.clone():
			metrics.PresenceMessages.WithLabelValues("local", "delivered").Inc()
		default:
			metrics.PresenceMessages.WithLabelValues("local", "dropped").Inc()
		}
	}
	return nil
}

func (t *LocalTransport) Subscribe(ctx context.Context, channel string) (<-chan Record, error) {
	ch := make(chan Record, subscriberBuffer)

	t.mu.Lock()
	if t.subs[channel] == nil {
		t.subs[channel] = make(map[chan Record]struct{})
	}
	t.subs[channel][ch] = struct{}{}
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.mu.Lock()
		delete(t.subs[channel], ch)
		if len(t.subs[channel]) == 0 {
			delete(t.subs, channel)
		}
		t.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}
