// Package config handles configuration loading, saving, and path management.
package config

import (
	"os"
	"path/filepath"
)

const (
	// GlobalDirName is the name of the global forgeloop directory.
	GlobalDirName = ".forgeloop"

	// WorkspaceDirName is the name of the per-workspace forgeloop directory.
	WorkspaceDirName = ".forgeloop"
)

// File names
const (
	SettingsFileName   = "settings.yaml"
	WorkspacesFileName = "workspaces.yaml"
	SessionsFileName   = "sessions.yaml"
	BudgetFileName     = "budget.yaml"
	FixLogFileName     = "fixes.md"
)

// GlobalDir returns the path to the global forgeloop directory (~/.forgeloop/).
func GlobalDir() (string, error) {
	if dir := os.Getenv("FORGELOOP_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, GlobalDirName), nil
}

// EnsureGlobalDir creates the global forgeloop directory if it doesn't exist.
func EnsureGlobalDir() error {
	dir, err := GlobalDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// GlobalSettingsFile returns the path to the settings.yaml file.
func GlobalSettingsFile() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SettingsFileName), nil
}

// GlobalWorkspacesFile returns the path to the workspaces.yaml index.
func GlobalWorkspacesFile() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, WorkspacesFileName), nil
}

// GlobalSessionsFile returns the path to the sessions.yaml table.
func GlobalSessionsFile() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SessionsFileName), nil
}

// GlobalBudgetFile returns the path to the budget.yaml ledger.
func GlobalBudgetFile() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, BudgetFileName), nil
}

// WorkspaceDir returns the path to a workspace's .forgeloop/ directory.
func WorkspaceDir(root string) string {
	return filepath.Join(root, WorkspaceDirName)
}

// EnsureWorkspaceDir creates a workspace's .forgeloop/ directory if needed.
func EnsureWorkspaceDir(root string) error {
	return os.MkdirAll(WorkspaceDir(root), 0o755)
}

// FixLogFile returns the path to a workspace's fix log.
func FixLogFile(root string) string {
	return filepath.Join(WorkspaceDir(root), FixLogFileName)
}
