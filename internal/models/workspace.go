// Package models contains shared data structures used across the application.
package models

import "time"

// Workspace represents a registered workspace.
// This corresponds to an entry in the global workspaces.yaml index.
type Workspace struct {
	ID        string    `yaml:"id"`
	Root      string    `yaml:"root"`
	Name      string    `yaml:"name"`
	CreatedAt time.Time `yaml:"created_at"`
}

// WorkspaceIndex represents the global workspaces.yaml file.
// It is rewritten in full on every mutation.
type WorkspaceIndex struct {
	Version    int         `yaml:"version"`
	Workspaces []Workspace `yaml:"workspaces"`
}

// NewWorkspaceIndex creates an empty workspace index.
func NewWorkspaceIndex() *WorkspaceIndex {
	return &WorkspaceIndex{Version: 1}
}

// Find returns the workspace with the given id, or nil.
func (idx *WorkspaceIndex) Find(id string) *Workspace {
	for i := range idx.Workspaces {
		if idx.Workspaces[i].ID == id {
			return &idx.Workspaces[i]
		}
	}
	return nil
}

// Add appends a workspace to the index.
func (idx *WorkspaceIndex) Add(ws Workspace) {
	idx.Workspaces = append(idx.Workspaces, ws)
}

// Remove deletes the workspace with the given id.
// Returns true if an entry was removed.
func (idx *WorkspaceIndex) Remove(id string) bool {
	for i := range idx.Workspaces {
		if idx.Workspaces[i].ID == id {
			idx.Workspaces = append(idx.Workspaces[:i], idx.Workspaces[i+1:]...)
			return true
		}
	}
	return false
}
