package config

import (
	"github.com/forgeloop-io/forgeloop/internal/models"
)

// LoadSessionTable loads the session table from ~/.forgeloop/sessions.yaml.
// If the file doesn't exist, returns an empty table.
func LoadSessionTable() (*models.SessionTable, error) {
	path, err := GlobalSessionsFile()
	if err != nil {
		return nil, err
	}
	return LoadYAMLOrDefault(path, models.NewSessionTable)
}

// SaveSessionTable saves the session table to ~/.forgeloop/sessions.yaml.
func SaveSessionTable(table *models.SessionTable) error {
	if err := EnsureGlobalDir(); err != nil {
		return err
	}
	path, err := GlobalSessionsFile()
	if err != nil {
		return err
	}
	return SaveYAML(path, table)
}
