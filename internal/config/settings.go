package config

import (
	"os"
	"strconv"

	"github.com/forgeloop-io/forgeloop/internal/models"
)

// LoadSettings loads the global settings from ~/.forgeloop/settings.yaml.
// If the file doesn't exist, returns default settings. Environment
// variables override the file for deploy-time tuning.
func LoadSettings() (*models.Settings, error) {
	path, err := GlobalSettingsFile()
	if err != nil {
		return nil, err
	}
	settings, err := LoadYAMLOrDefault(path, models.NewSettings)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(settings)
	return settings, nil
}

// SaveSettings saves the global settings to ~/.forgeloop/settings.yaml.
func SaveSettings(settings *models.Settings) error {
	path, err := GlobalSettingsFile()
	if err != nil {
		return err
	}
	return SaveYAML(path, settings)
}

func applyEnvOverrides(s *models.Settings) {
	if bin := os.Getenv("FORGELOOP_AGENT_BIN"); bin != "" {
		s.Agent.Bin = bin
	}
	if v := os.Getenv("FORGELOOP_AGENT_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			s.Agent.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("FORGELOOP_DAILY_CAP_USD"); v != "" {
		if cap, err := strconv.ParseFloat(v, 64); err == nil && cap > 0 {
			s.DailyCapUSD = cap
		}
	}
	if v := os.Getenv("FORGELOOP_MAX_BUILD_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.MaxBuildAttempts = n
		}
	}
}
