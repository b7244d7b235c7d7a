package config

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// Keyring accounts for the remote collaborators.
const (
	ProviderKeyName = "provider_api_key"
	VideoKeyName    = "video_api_key"
)

// GetAPIKey returns the secret stored under name. The environment wins over the
// OS keyring so containers can run without one.
func GetAPIKey(name string) string {
	if v := strings.TrimSpace(os.Getenv(EnvPrefix + strings.ToUpper(name))); v != "" {
		return v
	}
	key, err := keyring.Get(ServiceName, name)
	if err != nil {
		// Log only if it's not a "not found" error to avoid noise on first run
		if !errors.Is(err, keyring.ErrNotFound) {
			log.Printf("failed to retrieve %s from keyring: %v", name, err)
		}
		return ""
	}
	return key
}

// SetAPIKey stores the secret in the OS keyring.
func SetAPIKey(name, value string) error {
	return keyring.Set(ServiceName, name, value)
}

// DeleteAPIKey removes the secret from the OS keyring.
func DeleteAPIKey(name string) error {
	err := keyring.Delete(ServiceName, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
