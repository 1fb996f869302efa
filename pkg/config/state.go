package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// stateFileName is the well-known state key from spec.md §6: a small file
// alongside the IPC socket that survives restarts independently of the
// YAML config file, so a provider switch is not lost across a respawn.
const stateFileName = "state.json"

type persistedState struct {
	CurrentProviderID string `json:"currentProviderId"`
}

// HomeDir returns "<home>/.ccrelay", creating it if necessary. Both the
// IPC socket and the state file live here.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".ccrelay")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("config: create state directory %q: %w", dir, err)
	}
	return dir, nil
}

// StatePath returns the path of the persisted-provider state file.
func StatePath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, stateFileName), nil
}

// LoadState reads the persisted current-provider id. A missing file is not
// an error: it returns the empty string, meaning "no prior selection".
func LoadState() (string, error) {
	path, err := StatePath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("config: read state file %q: %w", path, err)
	}
	var s persistedState
	if err := json.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("config: parse state file %q: %w", path, err)
	}
	return s.CurrentProviderID, nil
}

// SaveState persists providerID as the current selection, overwriting any
// prior value. This is the PersistFunc wired into pkg/router.New/Router.
func SaveState(providerID string) error {
	path, err := StatePath()
	if err != nil {
		return err
	}
	data, err := json.Marshal(persistedState{CurrentProviderID: providerID})
	if err != nil {
		return fmt.Errorf("config: marshal state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write state file %q: %w", path, err)
	}
	return nil
}
