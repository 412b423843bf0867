// Package workspace implements the durable workspace registry and the
// per-workspace exclusive locks that serialize filesystem-mutating work.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgeloop-io/forgeloop/internal/config"
	"github.com/forgeloop-io/forgeloop/internal/models"
)

// Registry errors.
var (
	ErrWorkspaceNotFound  = errors.New("workspace not found")
	ErrDuplicateWorkspace = errors.New("workspace already registered")
	ErrWorkspaceBusy      = errors.New("workspace busy")
)

// RemovalFunc is invoked after a workspace is removed from the registry.
// Subscribers use it to cascade-clean per-workspace state (sessions, fix logs).
type RemovalFunc func(ws models.Workspace)

// RenameFunc is invoked after a workspace id changes, so state keyed by
// the old id follows to the new one.
type RenameFunc func(oldID, newID string)

// Manager owns the workspace index and persists a full snapshot on every
// mutation so the registry survives process restart.
type Manager struct {
	mu        sync.RWMutex
	index     *models.WorkspaceIndex
	onRemoval []RemovalFunc
	onRename  []RenameFunc

	lockMu sync.Mutex
	locks  map[string]chan struct{} // workspace id -> held semaphore
}

// NewManager loads the workspace index and returns a registry manager.
func NewManager() (*Manager, error) {
	index, err := config.LoadWorkspaceIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace index: %w", err)
	}
	return &Manager{
		index: index,
		locks: make(map[string]chan struct{}),
	}, nil
}

// SubscribeRemoval registers a cascade-cleanup hook for workspace removal.
func (m *Manager) SubscribeRemoval(fn RemovalFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRemoval = append(m.onRemoval, fn)
}

// SubscribeRename registers a re-key hook for workspace renames.
func (m *Manager) SubscribeRename(fn RenameFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRename = append(m.onRename, fn)
}

// NormalizeID lowercases a workspace id. Ids are case-insensitive keys.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Register adds a workspace to the registry. An empty id gets a generated
// one. Fails with ErrDuplicateWorkspace if the id is already taken.
func (m *Manager) Register(id, root, name string) (models.Workspace, error) {
	id = NormalizeID(id)
	if id == "" {
		id = uuid.New().String()
	}
	if name == "" {
		name = id
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index.Find(id) != nil {
		return models.Workspace{}, fmt.Errorf("%w: %s", ErrDuplicateWorkspace, id)
	}

	ws := models.Workspace{
		ID:        id,
		Root:      root,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	m.index.Add(ws)

	if err := config.SaveWorkspaceIndex(m.index); err != nil {
		m.index.Remove(id)
		return models.Workspace{}, err
	}
	return ws, nil
}

// Lookup returns the workspace with the given id.
func (m *Manager) Lookup(id string) (models.Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ws := m.index.Find(NormalizeID(id))
	if ws == nil {
		return models.Workspace{}, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, id)
	}
	return *ws, nil
}

// List returns all registered workspaces sorted by id.
func (m *Manager) List() []models.Workspace {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Workspace, len(m.index.Workspaces))
	copy(out, m.index.Workspaces)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Rename changes a workspace id, keeping root and metadata. The exclusive
// lock follows the new id, so a run in flight keeps the workspace busy,
// and rename subscribers re-key their own per-workspace state.
func (m *Manager) Rename(oldID, newID string) (models.Workspace, error) {
	oldID = NormalizeID(oldID)
	newID = NormalizeID(newID)

	m.mu.Lock()

	ws := m.index.Find(oldID)
	if ws == nil {
		m.mu.Unlock()
		return models.Workspace{}, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, oldID)
	}
	if oldID != newID && m.index.Find(newID) != nil {
		m.mu.Unlock()
		return models.Workspace{}, fmt.Errorf("%w: %s", ErrDuplicateWorkspace, newID)
	}

	prev := ws.ID
	ws.ID = newID
	if err := config.SaveWorkspaceIndex(m.index); err != nil {
		ws.ID = prev
		m.mu.Unlock()
		return models.Workspace{}, err
	}
	renamed := *ws
	subs := make([]RenameFunc, len(m.onRename))
	copy(subs, m.onRename)
	m.mu.Unlock()

	m.migrateLock(oldID, newID)
	for _, fn := range subs {
		fn(oldID, newID)
	}
	return renamed, nil
}

// migrateLock moves a workspace's semaphore to its new id. The channel
// itself moves, so a lock held at rename time stays held under the new id.
func (m *Manager) migrateLock(oldID, newID string) {
	if oldID == newID {
		return
	}
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	if sem, ok := m.locks[oldID]; ok {
		m.locks[newID] = sem
		delete(m.locks, oldID)
	}
}

// Remove deletes a workspace from the registry and notifies removal
// subscribers so dependent state is cleaned up.
func (m *Manager) Remove(id string) error {
	id = NormalizeID(id)

	m.mu.Lock()
	ws := m.index.Find(id)
	if ws == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWorkspaceNotFound, id)
	}
	removed := *ws
	m.index.Remove(id)
	if err := config.SaveWorkspaceIndex(m.index); err != nil {
		m.index.Add(removed)
		m.mu.Unlock()
		return err
	}
	subs := make([]RemovalFunc, len(m.onRemoval))
	copy(subs, m.onRemoval)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(removed)
	}
	return nil
}

// semaphore returns the lock channel for a workspace id.
func (m *Manager) semaphore(id string) chan struct{} {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	sem, ok := m.locks[id]
	if !ok {
		sem = make(chan struct{}, 1)
		m.locks[id] = sem
	}
	return sem
}

// Acquire takes the exclusive lock for a workspace, blocking until it is
// free or the context is done. The returned release must be called exactly
// once.
func (m *Manager) Acquire(ctx context.Context, id string) (func(), error) {
	sem := m.semaphore(NormalizeID(id))
	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryAcquire takes the exclusive lock for a workspace without blocking.
// Fails with ErrWorkspaceBusy when another operation holds it.
func (m *Manager) TryAcquire(id string) (func(), error) {
	sem := m.semaphore(NormalizeID(id))
	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceBusy, id)
	}
}
