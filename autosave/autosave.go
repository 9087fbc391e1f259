// Package autosave debounces item-list changes into writes against a remote store.
package autosave

import (
	"context"
	"sync"
	"time"

	"ideation-workspace/core"
	"ideation-workspace/metrics"

	"github.com/sirupsen/logrus"
)

type Status string

const (
	StatusSaved   Status = "saved"
	StatusSaving  Status = "saving"
	StatusUnsaved Status = "unsaved"
)

const (
	DefaultDebounce = time.Second
	defaultTimeout  = 10 * time.Second
)

// Saver writes the full item list of a workspace.
type Saver interface {
	SaveItems(ctx context.Context, workspaceID string, items []core.Item) error
}

// StoreSaver adapts a WorkspaceStore to Saver.
type StoreSaver struct {
	Store core.WorkspaceStore
}

func (s StoreSaver) SaveItems(ctx context.Context, workspaceID string, items []core.Item) error {
	return s.Store.Save(ctx, &core.Workspace{ID: workspaceID, Items: items})
}

type Option func(*Bridge)

func WithDebounce(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.debounce = d
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// OnStatus is called on every status transition, outside the bridge lock.
func OnStatus(fn func(Status)) Option {
	return func(b *Bridge) { b.onStatus = fn }
}

// Bridge coalesces edits: only the last item list inside a debounce window is
// sent. Each edit bumps a sequence number so a save that completes after a
// newer edit never reports the newer state as saved.
type Bridge struct {
	saver       Saver
	workspaceID string
	debounce    time.Duration
	timeout     time.Duration
	onStatus    func(Status)

	mu      sync.Mutex
	timer   *time.Timer
	pending []core.Item
	dirty   bool
	seq     uint64
	status  Status
	closed  bool
}

func New(saver Saver, workspaceID string, opts ...Option) *Bridge {
	b := &Bridge{
		saver:       saver,
		workspaceID: workspaceID,
		debounce:    DefaultDebounce,
		timeout:     defaultTimeout,
		status:      StatusSaved,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Notify marks the workspace unsaved and restarts the debounce window.
// The items are copied.
func (b *Bridge) Notify(items []core.Item) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}

	b.pending = core.CloneItems(items)
	if b.pending == nil {
		b.pending = []core.Item{}
	}
	b.dirty = true
	b.seq++
	seq := b.seq

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.debounce, func() { b.fire(seq) })

	b.status = StatusUnsaved
	b.mu.Unlock()

	b.emit(StatusUnsaved)
}

func (b *Bridge) fire(seq uint64) {
	b.mu.Lock()
	if b.closed || seq != b.seq || !b.dirty {
		b.mu.Unlock()
		return
	}
	items := b.take()
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	_ = b.save(ctx, seq, items)
}

// Flush writes a pending change immediately instead of waiting for the timer.
func (b *Bridge) Flush(ctx context.Context) error {
	b.mu.Lock()
	if !b.dirty {
		b.mu.Unlock()
		return nil
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	seq := b.seq
	items := b.take()
	b.mu.Unlock()

	return b.save(ctx, seq, items)
}

// take moves the pending items out and marks the bridge saving. Caller holds mu.
func (b *Bridge) take() []core.Item {
	items := b.pending
	b.pending = nil
	b.dirty = false
	b.status = StatusSaving
	return items
}

func (b *Bridge) save(ctx context.Context, seq uint64, items []core.Item) error {
	b.emit(StatusSaving)

	start := time.Now()
	err := b.saver.SaveItems(ctx, b.workspaceID, items)
	metrics.SaveDuration.Observe(time.Since(start).Seconds())
	metrics.SavesTotal.WithLabelValues(metrics.Result(err)).Inc()

	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"workspace_id": b.workspaceID,
			"items":        len(items),
		}).Error("Autosave failed")
	}

	b.mu.Lock()
	if seq != b.seq {
		// A newer edit owns the status now.
		b.mu.Unlock()
		return err
	}
	next := StatusSaved
	if err != nil {
		next = StatusUnsaved
	}
	b.status = next
	b.mu.Unlock()

	b.emit(next)
	return err
}

// Close cancels a pending save. A save already in flight runs to completion.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
	}
}

func (b *Bridge) emit(s Status) {
	if b.onStatus != nil {
		b.onStatus(s)
	}
}
