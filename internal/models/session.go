package models

import "time"

// Session tracks agent conversation continuity for one workspace.
// The continuation token is opaque: it is minted by the external agent and
// round-tripped back on the next invocation. This corresponds to an entry
// in the global sessions.yaml table.
type Session struct {
	WorkspaceID       string    `yaml:"workspace_id"`
	ContinuationToken string    `yaml:"continuation_token"`
	LastUsedAt        time.Time `yaml:"last_used_at"`
}

// SessionTable represents the global sessions.yaml file.
type SessionTable struct {
	Version  int       `yaml:"version"`
	Sessions []Session `yaml:"sessions"`
}

// NewSessionTable creates an empty session table.
func NewSessionTable() *SessionTable {
	return &SessionTable{Version: 1}
}

// Find returns the session for the given workspace id, or nil.
func (t *SessionTable) Find(workspaceID string) *Session {
	for i := range t.Sessions {
		if t.Sessions[i].WorkspaceID == workspaceID {
			return &t.Sessions[i]
		}
	}
	return nil
}

// Put stores a session, replacing any existing entry for the workspace.
func (t *SessionTable) Put(s Session) {
	if existing := t.Find(s.WorkspaceID); existing != nil {
		*existing = s
		return
	}
	t.Sessions = append(t.Sessions, s)
}

// Remove deletes the session for the given workspace id.
// Returns true if an entry was removed.
func (t *SessionTable) Remove(workspaceID string) bool {
	for i := range t.Sessions {
		if t.Sessions[i].WorkspaceID == workspaceID {
			t.Sessions = append(t.Sessions[:i], t.Sessions[i+1:]...)
			return true
		}
	}
	return false
}
