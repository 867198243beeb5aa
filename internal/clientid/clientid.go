// ABOUTME: Loads or generates the opaque client identifier persisted across restarts
// ABOUTME: Stored as JSON in the user config directory; a fresh uuid is minted on first run or corrupt state
package clientid

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	configDirName  = "sendspin-player"
	configFileName = "client-id.json"
)

type stored struct {
	ClientID string `json:"client_id"`
}

// Load returns the persisted client ID, generating and saving a new one if
// none exists yet or the existing file can't be read.
func Load() (string, error) {
	path, err := configPath()
	if err != nil {
		return generateOnly()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return generateAndSave(path)
	}

	var s stored
	if err := json.Unmarshal(data, &s); err != nil || s.ClientID == "" {
		return generateAndSave(path)
	}
	return s.ClientID, nil
}

func generateOnly() (string, error) {
	return uuid.New().String(), nil
}

func generateAndSave(path string) (string, error) {
	id := uuid.New().String()
	if err := save(path, id); err != nil {
		// The ID is still usable for this run even if persistence fails.
		return id, nil
	}
	return id, nil
}

func save(path, id string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("clientid: create config dir: %w", err)
	}
	data, err := json.Marshal(stored{ClientID: id})
	if err != nil {
		return fmt.Errorf("clientid: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("clientid: write: %w", err)
	}
	return nil
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configDirName, configFileName), nil
}
