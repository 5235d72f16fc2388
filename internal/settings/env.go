package settings

import (
	"context"
	"os"
)

// EnvStore reads settings from environment variables named after the setting key.
type EnvStore struct{}

// Lookup implements Store.
func (EnvStore) Lookup(_ context.Context, key string) (string, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false, nil
	}
	return value, true, nil
}

// MapStore serves fixed values, typically process defaults consulted after the other stores.
type MapStore map[string]string

// Lookup implements Store.
func (m MapStore) Lookup(_ context.Context, key string) (string, bool, error) {
	value, ok := m[key]
	return value, ok, nil
}
