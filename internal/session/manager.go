// Package session tracks agent conversation continuity per workspace.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/forgeloop-io/forgeloop/internal/config"
	"github.com/forgeloop-io/forgeloop/internal/models"
)

// Manager owns the durable session table. Continuation tokens are opaque:
// the external agent mints them and this component only round-trips them.
type Manager struct {
	mu    sync.Mutex
	table *models.SessionTable
}

// NewManager loads the session table and returns a session manager.
func NewManager() (*Manager, error) {
	table, err := config.LoadSessionTable()
	if err != nil {
		return nil, fmt.Errorf("failed to load session table: %w", err)
	}
	return &Manager{table: table}, nil
}

// Token returns the stored continuation token for a workspace, or "" when
// no session exists. An empty token tells the agent to start a fresh
// conversation; Store records the token it mints.
func (m *Manager) Token(workspaceID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.table.Find(workspaceID); s != nil {
		return s.ContinuationToken
	}
	return ""
}

// Store records the continuation token returned by the latest agent
// invocation, replacing any previous session for the workspace.
func (m *Manager) Store(workspaceID, token string) error {
	if token == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.table.Put(models.Session{
		WorkspaceID:       workspaceID,
		ContinuationToken: token,
		LastUsedAt:        time.Now().UTC(),
	})
	return config.SaveSessionTable(m.table)
}

// Rename moves a workspace's session to a new id, keeping the token and
// last-used time. A workspace with no session is a no-op; an existing
// session under the new id is replaced.
func (m *Manager) Rename(oldID, newID string) error {
	if oldID == newID {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.table.Find(oldID)
	if s == nil {
		return nil
	}
	moved := *s
	moved.WorkspaceID = newID
	m.table.Remove(oldID)
	m.table.Put(moved)
	return config.SaveSessionTable(m.table)
}

// Reset discards the stored session for a workspace unconditionally.
// The next agent invocation starts a new conversation. Resetting a
// workspace with no session is a no-op.
func (m *Manager) Reset(workspaceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.table.Remove(workspaceID) {
		return nil
	}
	return config.SaveSessionTable(m.table)
}

// LastUsed returns the session's last-used time, or the zero time when no
// session exists.
func (m *Manager) LastUsed(workspaceID string) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.table.Find(workspaceID); s != nil {
		return s.LastUsedAt
	}
	return time.Time{}
}
