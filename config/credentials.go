// ABOUTME: Stored API credentials for the remote backend
// ABOUTME: Written by `remote login` with owner-only permissions
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const credentialsFileName = "remote-credentials.json"

// Credentials is what `remote login` remembers.
type Credentials struct {
	BaseURL string `json:"base_url"`
	Token   string `json:"token"`
}

// CredentialsPath returns the credentials file under dataDir.
func CredentialsPath(dataDir string) string {
	return filepath.Join(dataDir, credentialsFileName)
}

// SaveCredentials persists creds to dataDir.
func SaveCredentials(dataDir string, creds Credentials) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(CredentialsPath(dataDir), data, 0600)
}

// LoadCredentials reads saved credentials. A missing file returns zero values.
func LoadCredentials(dataDir string) (Credentials, error) {
	var creds Credentials
	data, err := os.ReadFile(CredentialsPath(dataDir))
	if err != nil {
		if os.IsNotExist(err) {
			return creds, nil
		}
		return creds, err
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return creds, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return creds, nil
}

// ApplyCredentials fills the remote settings from saved credentials where the
// config and environment left them empty.
func (c *Config) ApplyCredentials() error {
	creds, err := LoadCredentials(c.DataDir)
	if err != nil {
		return err
	}
	if c.Remote.BaseURL == "" {
		c.Remote.BaseURL = creds.BaseURL
	}
	if c.Remote.Token == "" {
		c.Remote.Token = creds.Token
	}
	return nil
}
