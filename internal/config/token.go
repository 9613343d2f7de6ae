package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

const tokenKey = "server.api_token"

// GetAPIToken returns the bearer token protecting the HTTP API. The
// SHOPTALK_API_TOKEN environment variable wins; otherwise the token is
// read from the config file, generated and persisted on first use.
func GetAPIToken() (string, error) {
	return getAPITokenWith(newFileBackend(configFilePath()))
}

func getAPITokenWith(b Backend) (string, error) {
	if t := os.Getenv("SHOPTALK_API_TOKEN"); t != "" {
		return t, nil
	}

	t, ok, err := b.GetString(tokenKey)
	if err != nil {
		return "", fmt.Errorf("reading API token: %w", err)
	}
	if ok && t != "" {
		return t, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating API token: %w", err)
	}
	t = hex.EncodeToString(buf)
	if err := b.SetString(tokenKey, t); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return t, nil
}
