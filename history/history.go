// Package history keeps bounded undo/redo stacks of full item-list snapshots.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ideation-workspace/core"

	"github.com/sirupsen/logrus"
)

// DefaultMaxDepth bounds the past stack.
const DefaultMaxDepth = 50

const persistTimeout = 5 * time.Second

func PastKey(workspaceID string) string   { return "history_past_" + workspaceID }
func FutureKey(workspaceID string) string { return "history_future_" + workspaceID }

type Option func(*Manager)

func WithMaxDepth(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.max = n
		}
	}
}

// Manager holds the past (oldest first) and future (next redo first) stacks.
// A nil store keeps history in memory only. Not safe for concurrent use.
type Manager struct {
	store       core.KeyValueStore
	workspaceID string
	max         int

	past   [][]core.Item
	future [][]core.Item
}

func NewManager(store core.KeyValueStore, workspaceID string, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		workspaceID: workspaceID,
		max:         DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load restores both stacks from the store. Missing keys mean empty history.
func (m *Manager) Load(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	past, err := m.loadStack(ctx, PastKey(m.workspaceID))
	if err != nil {
		return err
	}
	future, err := m.loadStack(ctx, FutureKey(m.workspaceID))
	if err != nil {
		return err
	}

	m.past = past
	m.future = future
	m.trim()
	return nil
}

func (m *Manager) loadStack(ctx context.Context, key string) ([][]core.Item, error) {
	data, err := m.store.GetValue(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	var stack [][]core.Item
	if err := json.Unmarshal(data, &stack); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	for _, snapshot := range stack {
		core.NormalizeItems(snapshot)
	}
	return stack, nil
}

// Record pushes the pre-mutation state and clears the redo stack.
func (m *Manager) Record(current []core.Item) {
	m.past = append(m.past, core.CloneItems(nonNil(current)))
	m.trim()
	m.future = nil
	m.persist()
}

// Undo returns the state to restore, or false when there is nothing to undo.
func (m *Manager) Undo(current []core.Item) ([]core.Item, bool) {
	if len(m.past) == 0 {
		return nil, false
	}

	last := len(m.past) - 1
	previous := m.past[last]
	m.past = m.past[:last]
	m.future = append([][]core.Item{core.CloneItems(nonNil(current))}, m.future...)
	m.persist()

	return core.CloneItems(previous), true
}

// Redo returns the state to restore, or false when there is nothing to redo.
func (m *Manager) Redo(current []core.Item) ([]core.Item, bool) {
	if len(m.future) == 0 {
		return nil, false
	}

	next := m.future[0]
	m.future = m.future[1:]
	m.past = append(m.past, core.CloneItems(nonNil(current)))
	m.trim()
	m.persist()

	return core.CloneItems(next), true
}

func (m *Manager) CanUndo() bool { return len(m.past) > 0 }
func (m *Manager) CanRedo() bool { return len(m.future) > 0 }

// Depth returns the sizes of the past and future stacks.
func (m *Manager) Depth() (past, future int) {
	return len(m.past), len(m.future)
}

func (m *Manager) MaxDepth() int { return m.max }

func (m *Manager) Clear() {
	m.past, m.future = nil, nil
	m.persist()
}

func (m *Manager) trim() {
	if over := len(m.past) - m.max; over > 0 {
		m.past = append([][]core.Item(nil), m.past[over:]...)
	}
}

// persist writes both stacks. Failures are logged; the in-memory history stays authoritative.
func (m *Manager) persist() {
	if m.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	log := logrus.WithField("workspace_id", m.workspaceID)
	for key, stack := range map[string][][]core.Item{
		PastKey(m.workspaceID):   m.past,
		FutureKey(m.workspaceID): m.future,
	} {
		if stack == nil {
			stack = [][]core.Item{}
		}
		data, err := json.Marshal(stack)
		if err != nil {
			log.WithError(err).WithField("key", key).Error("Failed to encode history")
			continue
		}
		if err := m.store.PutValue(ctx, key, data); err != nil {
			log.WithError(err).WithField("key", key).Error("Failed to persist history")
		}
	}
}

func nonNil(items []core.Item) []core.Item {
	if items == nil {
		return []core.Item{}
	}
	return items
}

// Purge removes the persisted stacks of a workspace, e.g. after the workspace is deleted.
func Purge(ctx context.Context, store core.KeyValueStore, workspaceID string) error {
	for _, key := range []string{PastKey(workspaceID), FutureKey(workspaceID)} {
		if err := store.RemoveValue(ctx, key); err != nil && !errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("remove %s: %w", key, err)
		}
	}
	return nil
}
