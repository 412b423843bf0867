package config

import (
	"github.com/forgeloop-io/forgeloop/internal/models"
)

// LoadWorkspaceIndex loads the workspace index from ~/.forgeloop/workspaces.yaml.
// If the file doesn't exist, returns an empty index.
func LoadWorkspaceIndex() (*models.WorkspaceIndex, error) {
	path, err := GlobalWorkspacesFile()
	if err != nil {
		return nil, err
	}
	return LoadYAMLOrDefault(path, models.NewWorkspaceIndex)
}

// SaveWorkspaceIndex saves the workspace index to ~/.forgeloop/workspaces.yaml.
func SaveWorkspaceIndex(index *models.WorkspaceIndex) error {
	if err := EnsureGlobalDir(); err != nil {
		return err
	}
	path, err := GlobalWorkspacesFile()
	if err != nil {
		return err
	}
	return SaveYAML(path, index)
}
