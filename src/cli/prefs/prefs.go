// Package prefs persists a per-agent-profile provider-kind preference, the
// CLI-layer collaborator `launch` consults to default `--provider` when the
// caller omits it. Grounded on
// original_source/utils/provider_preferences.py; kept as a flat JSON
// side-file rather than a sqlite table since it lives outside the core's
// request-serving path (§3).
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/yubing744/cli-agent-orchestrator/src/lib"
)

const preferencesFileName = "provider_preferences.json"

// contextDir returns ~/.cao, expanding the tilde with lib.FormatPath.
func contextDir() (string, error) {
	return lib.FormatPath("~/.cao")
}

func preferencesPath() (string, error) {
	dir, err := contextDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, preferencesFileName), nil
}

func loadPreferences() map[string]string {
	path, err := preferencesPath()
	if err != nil {
		return map[string]string{}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return map[string]string{}
	}

	var prefs map[string]string
	if err := json.Unmarshal(data, &prefs); err != nil {
		logrus.WithError(err).Warn("failed to read provider preferences; falling back to defaults")
		return map[string]string{}
	}
	return prefs
}

// SetInstalledProvider persists the provider choice for agentProfile.
func SetInstalledProvider(agentProfile, provider string) error {
	dir, err := contextDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	preferences := loadPreferences()
	preferences[agentProfile] = provider

	data, err := json.MarshalIndent(preferences, "", "  ")
	if err != nil {
		return err
	}

	path, err := preferencesPath()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// GetInstalledProvider returns the stored provider kind for agentProfile,
// or "" if none is recorded.
func GetInstalledProvider(agentProfile string) string {
	return loadPreferences()[agentProfile]
}
